package drive

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
)

func TestBandwidth_ChargeAndReject(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	b := e.svc.Bandwidth

	st, err := b.ChargeDownload(e.ctx, d.ID, 600)
	require.NoError(t, err)
	assert.Equal(t, int64(600), st.Used)

	st, err = b.ChargeDownload(e.ctx, d.ID, 400)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), st.Used)

	st, err = b.ChargeDownload(e.ctx, d.ID, 1)
	ae := requireCode(t, err, apperr.BandwidthExceeded)
	assert.True(t, st.LimitNotice)
	assert.Equal(t, int64(1000), ae.Details["used"])
	assert.Equal(t, int64(1), ae.Details["requested"])
	assert.Equal(t, d.BandwidthResetAt.UTC().Format(time.RFC3339), ae.Details["resetTime"])

	// Only the first rejection of a window carries the notice.
	st, err = b.ChargeDownload(e.ctx, d.ID, 1)
	requireCode(t, err, apperr.BandwidthExceeded)
	assert.False(t, st.LimitNotice)

	assert.Equal(t, int64(1000), e.reload(d.ID).BandwidthUsed)
}

func TestBandwidth_LazyReset(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	b := e.svc.Bandwidth

	_, err := b.ChargeDownload(e.ctx, d.ID, 1000)
	require.NoError(t, err)
	_, err = b.ChargeDownload(e.ctx, d.ID, 10)
	requireCode(t, err, apperr.BandwidthExceeded)

	// Status sees the reset before any charge writes it.
	e.clock.Advance(24 * time.Hour)
	st, err := b.Status(e.ctx, d.ID)
	require.NoError(t, err)
	assert.Zero(t, st.Used)
	assert.Equal(t, int64(1000), e.reload(d.ID).BandwidthUsed)

	st, err = b.ChargeDownload(e.ctx, d.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), st.Used)
	assert.Equal(t, d.BandwidthResetAt.Add(24*time.Hour), st.ResetAt)

	stored := e.reload(d.ID)
	assert.False(t, stored.BandwidthNotified)
	assert.Equal(t, int64(10), stored.BandwidthUsed)
}

func TestBandwidth_RejectionKeepsReset(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	require.NoError(t, e.db.Model(&models.Drive{}).Where("id = ?", d.ID).
		Updates(map[string]any{"bandwidth_used": 900, "bandwidth_notified": true}).Error)

	e.clock.Advance(49 * time.Hour)
	st, err := e.svc.Bandwidth.ChargeDownload(e.ctx, d.ID, 2000)
	requireCode(t, err, apperr.BandwidthExceeded)
	assert.True(t, st.LimitNotice)

	stored := e.reload(d.ID)
	assert.Zero(t, stored.BandwidthUsed)
	assert.True(t, stored.BandwidthNotified)
	assert.True(t, stored.BandwidthResetAt.After(e.clock.Now()))
}

func TestBandwidth_ConcurrentChargesAcrossOverdueWindow(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	require.NoError(t, e.db.Model(&models.Drive{}).Where("id = ?", d.ID).
		Updates(map[string]any{"bandwidth_used": 900, "bandwidth_notified": true}).Error)
	e.clock.Advance(25 * time.Hour)

	const (
		callers = 30
		charge  = 70
	)
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		rejected atomic.Int32
		notices  atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := e.svc.Bandwidth.ChargeDownload(e.ctx, d.ID, charge)
			switch {
			case err == nil:
				accepted.Add(1)
			case apperr.Is(err, apperr.BandwidthExceeded):
				rejected.Add(1)
				if st.LimitNotice {
					notices.Add(1)
				}
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// One reset: the old 900 is gone and the window moved by exactly one day.
	stored := e.reload(d.ID)
	assert.Equal(t, int32(14), accepted.Load())
	assert.Equal(t, int32(callers-14), rejected.Load())
	assert.Equal(t, int64(accepted.Load())*charge, stored.BandwidthUsed)
	assert.LessOrEqual(t, stored.BandwidthUsed, stored.BandwidthLimit)
	assert.True(t, d.BandwidthResetAt.Add(24*time.Hour).Equal(stored.BandwidthResetAt),
		"reset at %v, want %v", stored.BandwidthResetAt, d.BandwidthResetAt.Add(24*time.Hour))
	assert.Equal(t, int32(1), notices.Load())
	assert.True(t, stored.BandwidthNotified)
}

func TestNextReset(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before reset", base.Add(-time.Hour), base},
		{"exactly at reset", base, base.Add(day)},
		{"half a day late", base.Add(12 * time.Hour), base.Add(day)},
		{"three days late", base.Add(3*day + time.Minute), base.Add(4 * day)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextReset(base, tt.now, day)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			assert.True(t, got.After(tt.now))
		})
	}

	zero := nextReset(time.Time{}, base, day)
	assert.True(t, zero.Equal(base.Add(day)))
}
