package reconcile

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/realtime"
	"github.com/pawansuthar01/Qresto-sub000/services"
)

// The caches in this package are per-connection view state. Events are
// best-effort hints; every (re)connect resyncs from the authoritative fetch
// because the fan-out channel says nothing about events missed while away.

// OrderFetcher is the authoritative order fetch used on resync.
type OrderFetcher func() ([]models.Order, error)

// OccupancyFetcher is the authoritative occupancy fetch used on resync.
type OccupancyFetcher func() (*services.OccupancyState, error)

// RetryOnConflict runs op, retrying exactly once when it loses a concurrent
// write race. Most conflicts resolve themselves against fresher state; the
// second failure surfaces to the user.
func RetryOnConflict(op func() error) error {
	err := op()
	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		return op()
	}
	return err
}

// orderFromPayload recovers an order from an event payload, whether the event
// travelled in-process (typed) or over the wire (decoded JSON map).
func orderFromPayload(payload interface{}) (models.Order, bool) {
	switch v := payload.(type) {
	case models.Order:
		return v, true
	case *models.Order:
		return *v, true
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return models.Order{}, false
		}
		var order models.Order
		if err := json.Unmarshal(data, &order); err != nil || order.ID == 0 {
			return models.Order{}, false
		}
		return order, true
	}
}

func occupancyFromPayload(payload interface{}) (services.OccupancyState, bool) {
	switch v := payload.(type) {
	case services.OccupancyState:
		return v, true
	case *services.OccupancyState:
		return *v, true
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return services.OccupancyState{}, false
		}
		var state services.OccupancyState
		if err := json.Unmarshal(data, &state); err != nil || state.TableID == 0 {
			return services.OccupancyState{}, false
		}
		return state, true
	}
}

// StaffOrderBoard is the staff dashboard's local order list for one
// restaurant. Orders merge replace-by-id; duplicate or stale events lose the
// version comparison and are dropped rather than applied.
type StaffOrderBoard struct {
	RestaurantID uint

	mu     sync.Mutex
	orders map[uint]models.Order
}

func NewStaffOrderBoard(restaurantID uint) *StaffOrderBoard {
	return &StaffOrderBoard{
		RestaurantID: restaurantID,
		orders:       make(map[uint]models.Order),
	}
}

// ApplyEvent merges one inbound event. Returns false when the event was
// dropped as duplicate, stale or irrelevant.
func (b *StaffOrderBoard) ApplyEvent(evt realtime.Event) bool {
	if evt.Kind != realtime.EventOrderCreated && evt.Kind != realtime.EventOrderStatusChanged {
		return false
	}
	order, ok := orderFromPayload(evt.Payload)
	if !ok || order.RestaurantID != b.RestaurantID {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cached, exists := b.orders[order.ID]; exists && order.Version <= cached.Version {
		return false
	}
	if order.Status.Terminal() {
		// The board only shows the live pipeline.
		delete(b.orders, order.ID)
		return true
	}
	b.orders[order.ID] = order
	return true
}

// Resync replaces the cache wholesale from the authoritative fetch.
func (b *StaffOrderBoard) Resync(fetch OrderFetcher) error {
	orders, err := fetch()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.orders = make(map[uint]models.Order, len(orders))
	for _, order := range orders {
		if !order.Status.Terminal() {
			b.orders[order.ID] = order
		}
	}
	return nil
}

// Orders returns the board oldest first.
func (b *StaffOrderBoard) Orders() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Order, 0, len(b.orders))
	for _, order := range b.orders {
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GuestTableView is a guest device's view of its own table: who is seated and
// how the table's orders are progressing.
type GuestTableView struct {
	TableID uint

	mu               sync.Mutex
	currentCount     int
	occupancyVersion uint
	orders           map[uint]models.Order
}

func NewGuestTableView(tableID uint) *GuestTableView {
	return &GuestTableView{
		TableID: tableID,
		orders:  make(map[uint]models.Order),
	}
}

func (v *GuestTableView) ApplyEvent(evt realtime.Event) bool {
	switch evt.Kind {
	case realtime.EventMembershipChanged:
		state, ok := occupancyFromPayload(evt.Payload)
		if !ok || state.TableID != v.TableID {
			return false
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		if state.Version <= v.occupancyVersion && v.occupancyVersion != 0 {
			return false
		}
		v.currentCount = state.CurrentCount
		v.occupancyVersion = state.Version
		return true

	case realtime.EventOrderCreated, realtime.EventOrderStatusChanged:
		order, ok := orderFromPayload(evt.Payload)
		if !ok || order.TableID == nil || *order.TableID != v.TableID {
			return false
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		if cached, exists := v.orders[order.ID]; exists && order.Version <= cached.Version {
			return false
		}
		v.orders[order.ID] = order
		return true
	}
	return false
}

func (v *GuestTableView) Resync(fetchOccupancy OccupancyFetcher, fetchOrders OrderFetcher) error {
	state, err := fetchOccupancy()
	if err != nil {
		return err
	}
	orders, err := fetchOrders()
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.currentCount = state.CurrentCount
	v.occupancyVersion = state.Version
	v.orders = make(map[uint]models.Order, len(orders))
	for _, order := range orders {
		v.orders[order.ID] = order
	}
	return nil
}

func (v *GuestTableView) CurrentCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentCount
}

func (v *GuestTableView) Orders() []models.Order {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.Order, 0, len(v.orders))
	for _, order := range v.orders {
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
