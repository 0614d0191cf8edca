package drive

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

// QuotaLedger owns storage_used. Every mutation is a single guarded UPDATE,
// so concurrent reservations on one drive can never jointly overshoot the
// limit. Calls join the transaction carried by ctx, if any.
type QuotaLedger struct {
	db         *gorm.DB
	thresholds []int // ascending warning percentages
}

func NewQuotaLedger(db *gorm.DB, thresholds []int) *QuotaLedger {
	t := append([]int(nil), thresholds...)
	sort.Ints(t)
	return &QuotaLedger{db: db, thresholds: t}
}

// Reserve adds bytes to storage_used if the result stays within the limit.
func (q *QuotaLedger) Reserve(ctx context.Context, driveID uuid.UUID, bytes int64) error {
	if bytes < 0 {
		return apperr.New(apperr.InvalidInput, "size must not be negative")
	}
	conn := repositories.Conn(ctx, q.db)
	res := conn.Model(&models.Drive{}).
		Where("id = ? AND storage_used + ? <= storage_limit", driveID, bytes).
		Update("storage_used", repositories.Increment("storage_used", bytes))
	if res.Error != nil {
		return apperr.Wrap("quota.reserve", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	d, err := loadDrive(ctx, conn, driveID)
	if err != nil {
		return err
	}
	quotaRejections.WithLabelValues("storage").Inc()
	return storageExceeded(d.StorageUsed, d.StorageLimit, bytes)
}

// Release subtracts bytes from storage_used, clamping at zero.
func (q *QuotaLedger) Release(ctx context.Context, driveID uuid.UUID, bytes int64) error {
	if bytes < 0 {
		return apperr.New(apperr.InvalidInput, "size must not be negative")
	}
	res := repositories.Conn(ctx, q.db).Model(&models.Drive{}).
		Where("id = ?", driveID).
		Update("storage_used", gorm.Expr("CASE WHEN storage_used > ? THEN storage_used - ? ELSE 0 END", bytes, bytes))
	if res.Error != nil {
		return apperr.Wrap("quota.release", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.DriveNotFound, "Drive not found")
	}
	return nil
}

// Available reports whether bytes would currently fit, without reserving.
func (q *QuotaLedger) Available(ctx context.Context, driveID uuid.UUID, bytes int64) error {
	d, err := loadDrive(ctx, repositories.Conn(ctx, q.db), driveID)
	if err != nil {
		return err
	}
	if d.StorageUsed+bytes > d.StorageLimit {
		return storageExceeded(d.StorageUsed, d.StorageLimit, bytes)
	}
	return nil
}

// UsagePercentage is storageUsed / storageLimit * 100.
func (q *QuotaLedger) UsagePercentage(ctx context.Context, driveID uuid.UUID) (float64, error) {
	d, err := loadDrive(ctx, repositories.Conn(ctx, q.db), driveID)
	if err != nil {
		return 0, err
	}
	return d.StoragePercent(), nil
}

// Bracket returns the highest warning threshold at or below pct, or 0.
func (q *QuotaLedger) Bracket(pct float64) int {
	level := 0
	for _, t := range q.thresholds {
		if pct >= float64(t) {
			level = t
		}
	}
	return level
}

// AdvanceWarning moves the drive's stored warning bracket to match its
// current usage. It returns the new threshold only when the bracket moved
// up, so each crossing is reported once; moving down re-arms the lower
// thresholds.
func (q *QuotaLedger) AdvanceWarning(ctx context.Context, driveID uuid.UUID) (int, error) {
	conn := repositories.Conn(ctx, q.db)
	d, err := loadDrive(ctx, conn, driveID)
	if err != nil {
		return 0, err
	}
	level := q.Bracket(d.StoragePercent())
	if level == d.StorageWarnLevel {
		return 0, nil
	}

	res := conn.Model(&models.Drive{}).
		Where("id = ? AND storage_warn_level = ?", driveID, d.StorageWarnLevel).
		Update("storage_warn_level", level)
	if res.Error != nil {
		return 0, apperr.Wrap("quota.warning", res.Error)
	}
	if res.RowsAffected == 1 && level > d.StorageWarnLevel {
		return level, nil
	}
	return 0, nil
}

func storageExceeded(used, limit, requested int64) error {
	return apperr.New(apperr.StorageExceeded, "Storage limit exceeded").
		WithDetails(map[string]any{"used": used, "limit": limit, "requested": requested})
}

func loadDrive(ctx context.Context, conn *gorm.DB, driveID uuid.UUID) (*models.Drive, error) {
	var d models.Drive
	if err := conn.WithContext(ctx).First(&d, "id = ?", driveID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.DriveNotFound, "Drive not found")
		}
		return nil, apperr.Wrap("drive.load", err)
	}
	return &d, nil
}
