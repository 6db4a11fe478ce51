package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/realtime"
	"gorm.io/gorm"
)

type orderFixture struct {
	db     *gorm.DB
	engine *OrderEngine
	pub    *recordingPublisher
	table  models.Table
	menus  []models.Menu
	staff  Principal
	guest  Principal
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := setupTestDB(t)
	restaurant := seedRestaurant(t, db)
	table := seedTable(t, db, restaurant.ID, 4, true)
	menus := []models.Menu{
		seedMenu(t, db, restaurant.ID, "Nasi Goreng", 150),
		seedMenu(t, db, restaurant.ID, "Es Teh", 75),
	}
	pub := &recordingPublisher{}
	return &orderFixture{
		db:     db,
		engine: NewOrderEngine(db, pub, RoleGate{}),
		pub:    pub,
		table:  table,
		menus:  menus,
		staff:  Principal{Subject: "user:1", Role: "staff", RestaurantID: restaurant.ID},
		guest:  Principal{Subject: "guest:abc", Role: "guest", RestaurantID: restaurant.ID},
	}
}

func (f *orderFixture) createOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.engine.Create(f.table.RestaurantID, &f.table.ID, []OrderItemInput{
		{MenuID: f.menus[0].ID, Quantity: 2},
		{MenuID: f.menus[1].ID, Quantity: 2},
	}, f.guest)
	require.NoError(t, err)
	return order
}

func TestCreateOrderSnapshotsPrices(t *testing.T) {
	f := newOrderFixture(t)

	order := f.createOrder(t)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 450.0, order.TotalAmount)
	require.Len(t, order.OrderItems, 2)
	assert.Equal(t, 150.0, order.OrderItems[0].Price)

	// A later menu price change must not touch the stored order
	require.NoError(t, f.db.Model(&models.Menu{}).
		Where("id = ?", f.menus[0].ID).Update("price", 999).Error)

	stored, err := f.engine.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 450.0, stored.TotalAmount)
	assert.Equal(t, 150.0, stored.OrderItems[0].Price)

	// order_created reaches both the staff room and the table room
	assert.Contains(t, f.pub.kinds(realtime.RestaurantRoom(f.table.RestaurantID)), realtime.EventOrderCreated)
	assert.Contains(t, f.pub.kinds(realtime.TableRoom(f.table.ID)), realtime.EventOrderCreated)
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.engine.Create(f.table.RestaurantID, &f.table.ID, nil, f.guest)
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateOrderUnknownMenu(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.engine.Create(f.table.RestaurantID, &f.table.ID,
		[]OrderItemInput{{MenuID: 9999, Quantity: 1}}, f.guest)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "menu", notFound.Resource)

	// Nothing persisted from the rolled-back create
	var count int64
	f.db.Model(&models.Order{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateOrderRequiresCapability(t *testing.T) {
	f := newOrderFixture(t)

	outsider := Principal{Subject: "user:9", Role: "staff", RestaurantID: f.table.RestaurantID + 1}
	_, err := f.engine.Create(f.table.RestaurantID, &f.table.ID,
		[]OrderItemInput{{MenuID: f.menus[0].ID, Quantity: 1}}, outsider)
	var permErr *PermissionError
	require.ErrorAs(t, err, &permErr)
}

func TestTransitionHappyPath(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t)

	walk := []models.OrderStatus{
		models.OrderConfirmed, models.OrderPreparing, models.OrderReady, models.OrderServed,
	}
	for _, target := range walk {
		updated, err := f.engine.Transition(order.ID, target, f.staff)
		require.NoError(t, err)
		assert.Equal(t, target, updated.Status)
	}

	stored, err := f.engine.Get(order.ID)
	require.NoError(t, err)
	require.Len(t, stored.StatusLogs, 5)

	// The status log is a valid monotonic walk of the graph
	for i := 1; i < len(stored.StatusLogs); i++ {
		prev, next := stored.StatusLogs[i-1], stored.StatusLogs[i]
		assert.True(t, prev.Status.CanTransitionTo(next.Status),
			"illegal edge in history: %s -> %s", prev.Status, next.Status)
		assert.False(t, next.ChangedAt.Before(prev.ChangedAt))
	}
}

func TestTransitionRejectsIllegalJump(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t)

	_, err := f.engine.Transition(order.ID, models.OrderServed, f.staff)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.OrderPending, invalid.From)
	assert.Equal(t, models.OrderServed, invalid.To)

	// Status unchanged by the rejected transition
	stored, err := f.engine.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, stored.Status)
	assert.Len(t, stored.StatusLogs, 1)
}

func TestCancellationWindow(t *testing.T) {
	f := newOrderFixture(t)

	// Cancellable from confirmed
	order := f.createOrder(t)
	_, err := f.engine.Transition(order.ID, models.OrderConfirmed, f.staff)
	require.NoError(t, err)
	updated, err := f.engine.Transition(order.ID, models.OrderCancelled, f.staff)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, updated.Status)

	// No outbound edge from a terminal status
	_, err = f.engine.Transition(order.ID, models.OrderConfirmed, f.staff)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	// Not cancellable once ready
	second := f.createOrder(t)
	for _, target := range []models.OrderStatus{models.OrderConfirmed, models.OrderPreparing, models.OrderReady} {
		_, err := f.engine.Transition(second.ID, target, f.staff)
		require.NoError(t, err)
	}
	_, err = f.engine.Transition(second.ID, models.OrderCancelled, f.staff)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.OrderReady, invalid.From)

	stored, err := f.engine.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReady, stored.Status)
}

func TestTransitionSameTargetIsNoOp(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t)

	_, err := f.engine.Transition(order.ID, models.OrderConfirmed, f.staff)
	require.NoError(t, err)

	// Retrying the applied edge succeeds without a second append
	again, err := f.engine.Transition(order.ID, models.OrderConfirmed, f.staff)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, again.Status)

	stored, err := f.engine.Get(order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.StatusLogs, 2)
}

func TestTransitionRequiresCapability(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t)

	guest := Principal{Subject: "guest:abc", Role: "guest", RestaurantID: f.table.RestaurantID}
	_, err := f.engine.Transition(order.ID, models.OrderConfirmed, guest)
	var permErr *PermissionError
	require.ErrorAs(t, err, &permErr)

	outsider := Principal{Subject: "user:2", Role: "staff", RestaurantID: f.table.RestaurantID + 1}
	_, err = f.engine.Transition(order.ID, models.OrderConfirmed, outsider)
	require.ErrorAs(t, err, &permErr)
}

func TestTransitionUnknownOrder(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.engine.Transition(4242, models.OrderConfirmed, f.staff)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

// Two staff tap different buttons at once: exactly one wins, the other is
// told the state moved under it.
func TestTransitionRaceOneWinner(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t)

	for _, target := range []models.OrderStatus{models.OrderConfirmed, models.OrderPreparing} {
		_, err := f.engine.Transition(order.ID, target, f.staff)
		require.NoError(t, err)
	}

	// From preparing: one goes to ready, the other tries to cancel
	targets := []models.OrderStatus{models.OrderReady, models.OrderCancelled}
	results := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target models.OrderStatus) {
			defer wg.Done()
			_, err := f.engine.Transition(order.ID, target, f.staff)
			results[i] = err
		}(i, target)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var conflictErr *ConflictError
		var invalidErr *InvalidTransitionError
		if !errors.As(err, &conflictErr) && !errors.As(err, &invalidErr) {
			t.Fatalf("unexpected transition error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)

	stored, err := f.engine.Get(order.ID)
	require.NoError(t, err)
	// Exactly one additional append from the winning transition
	assert.Len(t, stored.StatusLogs, 4)
}

func TestBoardListsActivePipelineOldestFirst(t *testing.T) {
	f := newOrderFixture(t)

	first := f.createOrder(t)
	second := f.createOrder(t)
	third := f.createOrder(t)

	// Serve one and cancel one; only the untouched order stays pending
	for _, target := range []models.OrderStatus{models.OrderConfirmed, models.OrderPreparing, models.OrderReady, models.OrderServed} {
		_, err := f.engine.Transition(first.ID, target, f.staff)
		require.NoError(t, err)
	}
	_, err := f.engine.Transition(third.ID, models.OrderCancelled, f.staff)
	require.NoError(t, err)

	board, err := f.engine.Board(f.table.RestaurantID)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, second.ID, board[0].ID)
}
