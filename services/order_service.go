package services

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/realtime"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

// OrderEngine owns the order state machine. Every status mutation goes through
// Transition; no call site touches Order.Status directly.
type OrderEngine struct {
	db   *gorm.DB
	pub  realtime.Publisher
	gate CapabilityGate
}

func NewOrderEngine(db *gorm.DB, pub realtime.Publisher, gate CapabilityGate) *OrderEngine {
	return &OrderEngine{db: db, pub: pub, gate: gate}
}

type OrderItemInput struct {
	MenuID   uint   `json:"menu_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Notes    string `json:"notes"`
}

// Create opens a new order in pending. Unit prices are snapshotted from the
// menu here; later menu edits never change an existing order's total.
func (e *OrderEngine) Create(restaurantID uint, tableID *uint, items []OrderItemInput, p Principal) (*models.Order, error) {
	if !e.gate.HasPermission(p, restaurantID, PermOrderCreate) {
		return nil, &PermissionError{Action: PermOrderCreate}
	}
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	now := time.Now()
	order := models.Order{
		RestaurantID: restaurantID,
		TableID:      tableID,
		Status:       models.OrderPending,
		CreatedBy:    p.Subject,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var total float64
		for _, item := range items {
			var menu models.Menu
			if err := tx.Where("id = ? AND restaurant_id = ? AND available = ?",
				item.MenuID, restaurantID, true).First(&menu).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Resource: "menu", ID: strconv.Itoa(int(item.MenuID))}
				}
				return err
			}

			orderItem := models.OrderItem{
				OrderID:   order.ID,
				MenuID:    menu.ID,
				Quantity:  item.Quantity,
				Price:     menu.Price,
				Notes:     item.Notes,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
			total += float64(item.Quantity) * menu.Price
			order.OrderItems = append(order.OrderItems, orderItem)
		}

		order.TotalAmount = total
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("total_amount", total).Error; err != nil {
			return err
		}

		log := models.OrderStatusLog{
			OrderID:   order.ID,
			Status:    models.OrderPending,
			ChangedBy: p.Subject,
			ChangedAt: now,
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}
		order.StatusLogs = append(order.StatusLogs, log)
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order %d created for restaurant %d (total %.2f)",
		order.ID, restaurantID, order.TotalAmount)

	evt := realtime.Event{Kind: realtime.EventOrderCreated, Payload: order}
	e.pub.Publish(realtime.RestaurantRoom(restaurantID), evt)
	if tableID != nil {
		e.pub.Publish(realtime.TableRoom(*tableID), evt)
	}
	return &order, nil
}

// errRaceLost signals that the conditional status update hit zero rows.
var errRaceLost = errors.New("order transition lost race")

// Transition walks one permitted edge of the status graph. Concurrent
// attempts on the same order serialize on the conditional update: the second
// writer sees zero rows affected and is re-evaluated against fresh state, so
// two racing identical calls collapse into one append instead of two.
func (e *OrderEngine) Transition(orderID uint, target models.OrderStatus, p Principal) (*models.Order, error) {
	var order models.Order
	if err := e.db.Preload("OrderItems").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: strconv.Itoa(int(orderID))}
		}
		return nil, err
	}

	if !e.gate.HasPermission(p, order.RestaurantID, PermOrderUpdate) {
		return nil, &PermissionError{Action: PermOrderUpdate}
	}

	if order.Status == target {
		// Already applied; a retry of the same edge is a no-op, not a
		// double-append.
		return &order, nil
	}
	if !target.Valid() || !order.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: order.Status, To: target}
	}

	now := time.Now()
	err := e.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, order.Status).
			Updates(map[string]interface{}{
				"status":     target,
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errRaceLost
		}
		return tx.Create(&models.OrderStatusLog{
			OrderID:   orderID,
			Status:    target,
			ChangedBy: p.Subject,
			ChangedAt: now,
		}).Error
	})

	if errors.Is(err, errRaceLost) {
		// Someone moved the order first. If they moved it where we were
		// going, that is our success; otherwise the caller must re-read.
		fresh, ferr := e.Get(orderID)
		if ferr != nil {
			return nil, ferr
		}
		if fresh.Status == target {
			return fresh, nil
		}
		return nil, &ConflictError{Resource: "order", ID: orderID}
	}
	if err != nil {
		return nil, err
	}

	updated, err := e.Get(orderID)
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order %d: %s -> %s by %s", orderID, order.Status, target, p.Subject)

	evt := realtime.Event{Kind: realtime.EventOrderStatusChanged, Payload: updated}
	e.pub.Publish(realtime.RestaurantRoom(updated.RestaurantID), evt)
	if updated.TableID != nil {
		e.pub.Publish(realtime.TableRoom(*updated.TableID), evt)
	}
	return updated, nil
}

// Get loads one order with items and its full status log.
func (e *OrderEngine) Get(orderID uint) (*models.Order, error) {
	var order models.Order
	err := e.db.Preload("OrderItems").
		Preload("StatusLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at asc, id asc")
		}).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: strconv.Itoa(int(orderID))}
		}
		return nil, err
	}
	return &order, nil
}

// Board lists a restaurant's non-terminal orders oldest first. This is the
// authoritative fetch a staff dashboard resyncs from after (re)connect.
func (e *OrderEngine) Board(restaurantID uint) ([]models.Order, error) {
	var orders []models.Order
	err := e.db.Preload("OrderItems").
		Where("restaurant_id = ? AND status IN ?", restaurantID,
			[]models.OrderStatus{models.OrderPending, models.OrderConfirmed, models.OrderPreparing, models.OrderReady}).
		Order("created_at asc").
		Find(&orders).Error
	return orders, err
}

// TableOrders lists every order placed from one table, newest last.
func (e *OrderEngine) TableOrders(tableID uint) ([]models.Order, error) {
	var orders []models.Order
	err := e.db.Preload("OrderItems").
		Where("table_id = ?", tableID).
		Order("created_at asc").
		Find(&orders).Error
	return orders, err
}
