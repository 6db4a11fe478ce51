package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawansuthar01/Qresto-sub000/models"
)

func TestSweeperExpiresIdleSessions(t *testing.T) {
	db := setupTestDB(t)
	restaurant := seedRestaurant(t, db)
	table := seedTable(t, db, restaurant.ID, 4, true)

	coordinator := NewOccupancyCoordinator(db, &recordingPublisher{}, RoleGate{})
	sess, err := coordinator.Join(table.ID, "device-a")
	require.NoError(t, err)

	// Backdate the heartbeat past any reasonable idle window
	require.NoError(t, db.Model(&models.GuestSession{}).
		Where("id = ?", sess.ID).
		Update("last_seen_at", time.Now().Add(-time.Hour)).Error)

	sweeper := NewSessionSweeper(coordinator, 30*time.Minute)
	sweeper.Interval = 5 * time.Millisecond
	sweeper.Start()
	defer sweeper.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state, err := coordinator.Occupancy(table.ID)
		require.NoError(t, err)
		if state.CurrentCount == 0 {
			var swept models.GuestSession
			require.NoError(t, db.First(&swept, sess.ID).Error)
			assert.Equal(t, models.GuestSessionExpired, swept.Status)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("sweeper never expired the idle session")
}
