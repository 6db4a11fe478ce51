package services

import (
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/realtime"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

// OccupancyCoordinator runs the join/leave protocol against TableSession.
// Correctness under concurrent joins comes from the version CAS on the
// session row, not from any in-process lock: the capacity check and the
// counter bump land in one conditional UPDATE keyed on the version we read.
type OccupancyCoordinator struct {
	db   *gorm.DB
	pub  realtime.Publisher
	gate CapabilityGate
}

func NewOccupancyCoordinator(db *gorm.DB, pub realtime.Publisher, gate CapabilityGate) *OccupancyCoordinator {
	return &OccupancyCoordinator{db: db, pub: pub, gate: gate}
}

// OccupancyState is the table-room view of who is seated.
type OccupancyState struct {
	TableID      uint                  `json:"table_id"`
	CurrentCount int                   `json:"current_count"`
	Version      uint                  `json:"version"`
	Occupants    []models.GuestSession `json:"occupants"`
}

// Join seats a device at a table. A full table rejects with CapacityError,
// never queues. A device already seated gets its existing session back with a
// refreshed heartbeat instead of a second seat.
func (oc *OccupancyCoordinator) Join(tableID uint, deviceToken string) (*models.GuestSession, error) {
	var table models.Table
	if err := oc.db.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "table", ID: strconv.Itoa(int(tableID))}
		}
		return nil, err
	}

	// A lost CAS is retried against fresher state; most conflicts resolve
	// themselves, the rest surface as ConflictError.
	var (
		sess   *models.GuestSession
		reused bool
		err    error
	)
	for attempt := 0; attempt < 3; attempt++ {
		sess, reused, err = oc.tryJoin(&table, deviceToken)
		if err == nil {
			break
		}
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}
	if reused {
		return sess, nil
	}

	utils.InfoLogger.Printf("Guest %s joined table %d", sess.SessionKey, tableID)
	oc.emitMembership(&table)
	return sess, nil
}

// tryJoin runs one CAS attempt. The version read happens first and the
// same-device lookup runs after it on every attempt: a concurrent join with
// the same token either loses the version CAS or finds the winner's row here,
// never a second seat.
func (oc *OccupancyCoordinator) tryJoin(table *models.Table, deviceToken string) (*models.GuestSession, bool, error) {
	state, err := oc.sessionRow(table.ID)
	if err != nil {
		return nil, false, err
	}

	var existing models.GuestSession
	err = oc.db.Where("table_id = ? AND device_token = ? AND status = ?",
		table.ID, deviceToken, models.GuestSessionActive).First(&existing).Error
	if err == nil {
		now := time.Now()
		oc.db.Model(&existing).Update("last_seen_at", now)
		existing.LastSeenAt = now
		return &existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if table.EnforceCapacity && state.CurrentCount >= table.Capacity {
		return nil, false, &CapacityError{TableID: table.ID, Capacity: table.Capacity}
	}

	now := time.Now()
	sess := models.GuestSession{
		SessionKey:  uuid.NewString(),
		TableID:     table.ID,
		DeviceToken: deviceToken,
		Status:      models.GuestSessionActive,
		JoinedAt:    now,
		LastSeenAt:  now,
	}

	err = oc.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TableSession{}).
			Where("table_id = ? AND version = ?", table.ID, state.Version).
			Updates(map[string]interface{}{
				"current_count": state.CurrentCount + 1,
				"version":       state.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another device won the seat between our read and this write.
			return &ConflictError{Resource: "table_session", ID: table.ID}
		}
		return tx.Create(&sess).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &sess, false, nil
}

// sessionRow loads the occupancy row, creating it on first contact. Two
// first-ever joins can race the create; the loser's unique-index violation is
// resolved by re-reading the winner's row.
func (oc *OccupancyCoordinator) sessionRow(tableID uint) (*models.TableSession, error) {
	var state models.TableSession
	err := oc.db.Where(models.TableSession{TableID: tableID}).FirstOrCreate(&state).Error
	if err != nil {
		var existing models.TableSession
		if rerr := oc.db.Where("table_id = ?", tableID).First(&existing).Error; rerr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &state, nil
}

// Leave frees a seat. Idempotent: an unknown, already-left or already-expired
// session is a silent success.
func (oc *OccupancyCoordinator) Leave(sessionKey string) error {
	return oc.closeSession(sessionKey, models.GuestSessionLeft)
}

func (oc *OccupancyCoordinator) closeSession(sessionKey, endStatus string) error {
	var sess models.GuestSession
	if err := oc.db.Where("session_key = ?", sessionKey).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	// The status flip is the serialization point: only the writer that moves
	// the row out of 'active' decrements the counter. Flip and decrement
	// commit together so no reader ever sees the count off by one.
	flipped := false
	err := oc.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.GuestSession{}).
			Where("id = ? AND status = ?", sess.ID, models.GuestSessionActive).
			Update("status", endStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		flipped = true
		return decrementCount(tx, sess.TableID)
	})
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}

	var table models.Table
	if err := oc.db.First(&table, sess.TableID).Error; err == nil {
		utils.InfoLogger.Printf("Guest %s %s table %d", sessionKey, endStatus, sess.TableID)
		oc.emitMembership(&table)
	}
	return nil
}

func decrementCount(tx *gorm.DB, tableID uint) error {
	return tx.Model(&models.TableSession{}).
		Where("table_id = ? AND current_count > 0", tableID).
		Updates(map[string]interface{}{
			"current_count": gorm.Expr("current_count - 1"),
			"version":       gorm.Expr("version + 1"),
		}).Error
}

// Heartbeat refreshes the session's idle clock. An expired or unknown session
// reports NotFound so the device knows it must re-join.
func (oc *OccupancyCoordinator) Heartbeat(sessionKey string) error {
	res := oc.db.Model(&models.GuestSession{}).
		Where("session_key = ? AND status = ?", sessionKey, models.GuestSessionActive).
		Update("last_seen_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "session", ID: sessionKey}
	}
	return nil
}

// Reset clears all occupants unconditionally. Staff-only; used to recover
// stuck or ghost sessions. In-flight orders for the table are left alone.
func (oc *OccupancyCoordinator) Reset(tableID uint, p Principal) error {
	var table models.Table
	if err := oc.db.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "table", ID: strconv.Itoa(int(tableID))}
		}
		return err
	}

	if !oc.gate.HasPermission(p, table.RestaurantID, PermTableReset) {
		return &PermissionError{Action: PermTableReset}
	}

	err := oc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GuestSession{}).
			Where("table_id = ? AND status = ?", tableID, models.GuestSessionActive).
			Update("status", models.GuestSessionExpired).Error; err != nil {
			return err
		}
		return tx.Model(&models.TableSession{}).
			Where("table_id = ?", tableID).
			Updates(map[string]interface{}{
				"current_count": 0,
				"version":       gorm.Expr("version + 1"),
			}).Error
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.Printf("Table %d occupancy reset by %s", tableID, p.Subject)
	oc.emitMembership(&table)
	return nil
}

// ExpireIdle sweeps sessions whose last heartbeat is older than cutoff and
// treats each exactly like a leave. Returns how many were expired.
func (oc *OccupancyCoordinator) ExpireIdle(cutoff time.Time) (int, error) {
	var stale []models.GuestSession
	if err := oc.db.Where("status = ? AND last_seen_at < ?",
		models.GuestSessionActive, cutoff).Find(&stale).Error; err != nil {
		return 0, err
	}

	expired := 0
	for _, sess := range stale {
		if err := oc.closeSession(sess.SessionKey, models.GuestSessionExpired); err != nil {
			utils.ErrorLogger.Printf("Error expiring session %s: %v", sess.SessionKey, err)
			continue
		}
		expired++
	}
	return expired, nil
}

// Occupancy returns the authoritative occupancy view used for resync and for
// the membership event payload.
func (oc *OccupancyCoordinator) Occupancy(tableID uint) (*OccupancyState, error) {
	state, err := oc.sessionRow(tableID)
	if err != nil {
		return nil, err
	}
	var occupants []models.GuestSession
	if err := oc.db.Where("table_id = ? AND status = ?",
		tableID, models.GuestSessionActive).Order("joined_at asc").Find(&occupants).Error; err != nil {
		return nil, err
	}
	return &OccupancyState{
		TableID:      tableID,
		CurrentCount: state.CurrentCount,
		Version:      state.Version,
		Occupants:    occupants,
	}, nil
}

func (oc *OccupancyCoordinator) emitMembership(table *models.Table) {
	view, err := oc.Occupancy(table.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Error building membership payload for table %d: %v", table.ID, err)
		return
	}
	evt := realtime.Event{Kind: realtime.EventMembershipChanged, Payload: view}
	oc.pub.Publish(realtime.TableRoom(table.ID), evt)
	oc.pub.Publish(realtime.RestaurantRoom(table.RestaurantID), evt)
}
