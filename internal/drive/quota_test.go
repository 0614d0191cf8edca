package drive

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohits-web03/edudrive/internal/apperr"
)

func TestQuota_ReserveAndRelease(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	q := e.svc.Quota

	require.NoError(t, q.Reserve(e.ctx, d.ID, 400))
	require.NoError(t, q.Reserve(e.ctx, d.ID, 600))
	assert.Equal(t, int64(1000), e.reload(d.ID).StorageUsed)

	err := q.Reserve(e.ctx, d.ID, 1)
	ae := requireCode(t, err, apperr.StorageExceeded)
	assert.Equal(t, int64(1000), ae.Details["used"])
	assert.Equal(t, int64(1000), ae.Details["limit"])
	assert.Equal(t, int64(1), ae.Details["requested"])

	require.NoError(t, q.Release(e.ctx, d.ID, 300))
	assert.Equal(t, int64(700), e.reload(d.ID).StorageUsed)

	// Releasing more than is used clamps at zero.
	require.NoError(t, q.Release(e.ctx, d.ID, 5000))
	assert.Zero(t, e.reload(d.ID).StorageUsed)
}

func TestQuota_Errors(t *testing.T) {
	e := newEnv(t)
	q := e.svc.Quota

	requireCode(t, q.Reserve(e.ctx, uuid.New(), 1), apperr.DriveNotFound)
	requireCode(t, q.Release(e.ctx, uuid.New(), 1), apperr.DriveNotFound)
	requireCode(t, q.Reserve(e.ctx, e.drive().ID, -1), apperr.InvalidInput)
}

func TestQuota_AvailableDoesNotMutate(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	e.setStorageUsed(d.ID, 900)

	require.NoError(t, e.svc.Quota.Available(e.ctx, d.ID, 100))
	requireCode(t, e.svc.Quota.Available(e.ctx, d.ID, 101), apperr.StorageExceeded)
	assert.Equal(t, int64(900), e.reload(d.ID).StorageUsed)
}

func TestQuota_ConcurrentReservationsNeverOvershoot(t *testing.T) {
	e := newEnv(t)
	d := e.drive()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.svc.Quota.Reserve(e.ctx, d.ID, 100)
			switch {
			case err == nil:
				accepted.Add(1)
			case apperr.Is(err, apperr.StorageExceeded):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), accepted.Load())
	assert.Equal(t, int32(15), rejected.Load())
	assert.Equal(t, int64(1000), e.reload(d.ID).StorageUsed)
}

func TestQuota_Bracket(t *testing.T) {
	q := NewQuotaLedger(nil, []int{90, 80})
	tests := []struct {
		pct  float64
		want int
	}{
		{0, 0},
		{79.99, 0},
		{80, 80},
		{89.5, 80},
		{90, 90},
		{100, 90},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, q.Bracket(tt.pct), "pct %v", tt.pct)
	}
}

func TestQuota_AdvanceWarningIsEdgeTriggered(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	q := e.svc.Quota

	steps := []struct {
		name string
		used int64
		want int
	}{
		{"below thresholds", 500, 0},
		{"cross 80", 820, 80},
		{"still in 80 bracket", 850, 0},
		{"cross 90", 950, 90},
		{"stay above 90", 990, 0},
		{"drop below 80 re-arms", 100, 0},
		{"cross 80 again", 810, 80},
		{"jump straight past 90", 1000, 90},
	}
	for _, s := range steps {
		e.setStorageUsed(d.ID, s.used)
		got, err := q.AdvanceWarning(e.ctx, d.ID)
		require.NoError(t, err, s.name)
		assert.Equal(t, s.want, got, s.name)
	}
}
