package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/retail/backend/internal/domain/sales"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newEvent(eventType string, orgID uuid.UUID) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Sale", uuid.New(), orgID)
	return &e
}

// recordingHandler records the events it receives
type recordingHandler struct {
	eventTypes []string
	err        error
	panics     bool
	block      chan struct{}

	mu      sync.Mutex
	handled []shared.DomainEvent
	ctxErrs []error
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
	h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	orgID := uuid.New()

	t.Run("delivers to subscribed handlers only", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		saleHandler := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}}
		expenseHandler := &recordingHandler{eventTypes: []string{finance.EventTypeExpenseChanged}}
		bus.Subscribe(saleHandler)
		bus.Subscribe(expenseHandler)

		require.NoError(t, bus.Publish(context.Background(),
			newEvent(sales.EventTypeSaleRecorded, orgID),
			newEvent(sales.EventTypeSaleRecorded, orgID),
		))

		assert.Equal(t, 2, saleHandler.count())
		assert.Equal(t, 0, expenseHandler.count())
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}}
		bus.Subscribe(handler, sales.EventTypeSaleDeleted)

		require.NoError(t, bus.Publish(context.Background(),
			newEvent(sales.EventTypeSaleRecorded, orgID),
			newEvent(sales.EventTypeSaleDeleted, orgID),
		))
		assert.Equal(t, 1, handler.count())
	})

	t.Run("handler failures are logged, not returned", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))
		failing := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}, err: errors.New("redis down")}
		next := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}}
		bus.Subscribe(failing)
		bus.Subscribe(next)

		require.NoError(t, bus.Publish(context.Background(), newEvent(sales.EventTypeSaleRecorded, orgID)))

		assert.Equal(t, 1, next.count())
		entries := logs.FilterMessage("handler failed to process event").All()
		require.Len(t, entries, 1)
		assert.Equal(t, orgID.String(), entries[0].ContextMap()["organization_id"])
	})

	t.Run("a panicking handler does not stop dispatch", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))
		panicking := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}, panics: true}
		next := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}}
		bus.Subscribe(panicking)
		bus.Subscribe(next)

		require.NoError(t, bus.Publish(context.Background(), newEvent(sales.EventTypeSaleRecorded, orgID)))

		assert.Equal(t, 1, next.count())
		assert.Equal(t, 1, logs.FilterMessage("handler panicked").Len())
	})

	t.Run("unsubscribed handlers stop receiving", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}}
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		require.NoError(t, bus.Publish(context.Background(), newEvent(sales.EventTypeSaleRecorded, orgID)))
		assert.Equal(t, 0, handler.count())
	})

	t.Run("stopped bus drops events", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}}
		bus.Subscribe(handler)
		require.NoError(t, bus.Stop(context.Background()))

		require.NoError(t, bus.Publish(context.Background(), newEvent(sales.EventTypeSaleRecorded, orgID)))
		assert.Equal(t, 0, handler.count())

		require.NoError(t, bus.Start(context.Background()))
		require.NoError(t, bus.Publish(context.Background(), newEvent(sales.EventTypeSaleRecorded, orgID)))
		assert.Equal(t, 1, handler.count())
	})
}

func TestInMemoryEventBus_AsyncDispatch(t *testing.T) {
	orgID := uuid.New()

	t.Run("handlers run detached from the request context", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch())
		handler := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}, block: make(chan struct{})}
		bus.Subscribe(handler)

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, bus.Publish(ctx, newEvent(sales.EventTypeSaleRecorded, orgID)))
		cancel()
		close(handler.block)

		require.NoError(t, bus.Stop(context.Background()))
		require.Equal(t, 1, handler.count())
		assert.NoError(t, handler.ctxErrs[0])
	})

	t.Run("stop gives up when its context ends first", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch())
		handler := &recordingHandler{eventTypes: []string{sales.EventTypeSaleRecorded}, block: make(chan struct{})}
		bus.Subscribe(handler)
		require.NoError(t, bus.Publish(context.Background(), newEvent(sales.EventTypeSaleRecorded, orgID)))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := bus.Stop(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		close(handler.block)
		require.NoError(t, bus.Stop(context.Background()))
		assert.Equal(t, 1, handler.count())
	})
}
