package drive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

// BandwidthStatus is a drive's download budget as seen at charge time.
type BandwidthStatus struct {
	Used    int64     `json:"used"`
	Limit   int64     `json:"limit"`
	ResetAt time.Time `json:"resetAt"`

	// LimitNotice is set on the first rejection of a window; the caller
	// notifies the owner once.
	LimitNotice bool `json:"-"`
}

// BandwidthLedger owns the rolling download budget. The window is reset
// lazily by whichever charge first observes it has expired; no scheduler
// is involved.
type BandwidthLedger struct {
	db     *gorm.DB
	window time.Duration
	now    func() time.Time
}

func NewBandwidthLedger(db *gorm.DB, window time.Duration, now func() time.Time) *BandwidthLedger {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &BandwidthLedger{db: db, window: window, now: now}
}

// ChargeDownload resets an expired window and then charges bytes if they
// fit. The drive row is locked for the whole reset-then-charge sequence,
// so racing callers cannot double-reset or double-advance the window.
// A rejection charges nothing and returns BANDWIDTH_EXCEEDED.
func (b *BandwidthLedger) ChargeDownload(ctx context.Context, driveID uuid.UUID, bytes int64) (BandwidthStatus, error) {
	if bytes < 0 {
		return BandwidthStatus{}, apperr.New(apperr.InvalidInput, "size must not be negative")
	}

	var (
		status   BandwidthStatus
		rejected bool
	)
	err := repositories.InTx(ctx, b.db, func(ctx context.Context, tx *gorm.DB) error {
		var d models.Drive
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, "id = ?", driveID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.DriveNotFound, "Drive not found")
			}
			return apperr.Wrap("bandwidth.charge", err)
		}

		updates := map[string]any{}
		if b.expired(&d) {
			d.BandwidthUsed = 0
			d.BandwidthResetAt = nextReset(d.BandwidthResetAt, b.now(), b.window)
			d.BandwidthNotified = false
			updates["bandwidth_used"] = int64(0)
			updates["bandwidth_reset_at"] = d.BandwidthResetAt
			updates["bandwidth_notified"] = false
		}

		if d.BandwidthUsed+bytes > d.BandwidthLimit {
			rejected = true
			if !d.BandwidthNotified {
				d.BandwidthNotified = true
				updates["bandwidth_notified"] = true
				status.LimitNotice = true
			}
		} else {
			d.BandwidthUsed += bytes
			updates["bandwidth_used"] = d.BandwidthUsed
		}

		status.Used, status.Limit, status.ResetAt = d.BandwidthUsed, d.BandwidthLimit, d.BandwidthResetAt
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Drive{}).Where("id = ?", d.ID).Updates(updates).Error; err != nil {
			return apperr.Wrap("bandwidth.charge", err)
		}
		return nil
	})
	if err != nil {
		return BandwidthStatus{}, err
	}
	if rejected {
		quotaRejections.WithLabelValues("bandwidth").Inc()
		return status, apperr.New(apperr.BandwidthExceeded, "Daily bandwidth limit exceeded").
			WithDetails(map[string]any{
				"used":      status.Used,
				"limit":     status.Limit,
				"requested": bytes,
				"resetTime": status.ResetAt.UTC().Format(time.RFC3339),
			})
	}
	return status, nil
}

// Status reports the budget as it would be seen by a charge right now,
// without writing the reset.
func (b *BandwidthLedger) Status(ctx context.Context, driveID uuid.UUID) (BandwidthStatus, error) {
	d, err := loadDrive(ctx, repositories.Conn(ctx, b.db), driveID)
	if err != nil {
		return BandwidthStatus{}, err
	}
	if b.expired(d) {
		return BandwidthStatus{Limit: d.BandwidthLimit, ResetAt: nextReset(d.BandwidthResetAt, b.now(), b.window)}, nil
	}
	return BandwidthStatus{Used: d.BandwidthUsed, Limit: d.BandwidthLimit, ResetAt: d.BandwidthResetAt}, nil
}

func (b *BandwidthLedger) expired(d *models.Drive) bool {
	return !b.now().Before(d.BandwidthResetAt)
}

// nextReset advances resetAt by whole windows until it lies after now.
func nextReset(resetAt, now time.Time, window time.Duration) time.Time {
	if resetAt.IsZero() {
		return now.Add(window).UTC()
	}
	if now.Before(resetAt) {
		return resetAt
	}
	n := now.Sub(resetAt)/window + 1
	return resetAt.Add(n * window).UTC()
}
