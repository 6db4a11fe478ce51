package services

import (
	"errors"
	"fmt"

	"github.com/pawansuthar01/Qresto-sub000/models"
)

// ErrEmptyOrder ditolak saat create order tanpa item.
var ErrEmptyOrder = errors.New("order must contain at least one item")

// CapacityError: join rejected because the table is full.
type CapacityError struct {
	TableID  uint
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("table %d is full (capacity %d)", e.TableID, e.Capacity)
}

// NotFoundError: unknown table, order, menu or session.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// PermissionError: the capability gate said no.
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for %s", e.Action)
}

// InvalidTransitionError names the rejected edge.
type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}

// ConflictError: a conditional update lost a race against a concurrent writer.
// The caller should re-read and decide whether to retry.
type ConflictError struct {
	Resource string
	ID       uint
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently", e.Resource, e.ID)
}
