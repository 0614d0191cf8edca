package drive

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

type ReconcileReport struct {
	DriveID    uuid.UUID `json:"driveId"`
	Recorded   int64     `json:"recorded"`
	Actual     int64     `json:"actual"`
	Drift      int64     `json:"drift"`
	PathsFixed int       `json:"pathsFixed"`
}

// Reconcile recomputes storage_used from the sizes of all file rows that
// have not been purged, and rewrites stale folder paths.
func (s *Service) Reconcile(ctx context.Context, driveID uuid.UUID) (*ReconcileReport, error) {
	unlock := s.Tree.lockDrive(driveID)
	defer unlock()

	report := &ReconcileReport{DriveID: driveID}
	err := repositories.InTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		d, err := loadDrive(ctx, tx, driveID)
		if err != nil {
			return err
		}
		report.Recorded = d.StorageUsed

		err = tx.Model(&models.File{}).
			Where("drive_id = ?", driveID).
			Select("COALESCE(SUM(size), 0)").
			Scan(&report.Actual).Error
		if err != nil {
			return apperr.Wrap("reconcile.sum", err)
		}
		report.Drift = report.Actual - report.Recorded

		if report.Drift != 0 {
			if err := tx.Model(&models.Drive{}).Where("id = ?", driveID).Update("storage_used", report.Actual).Error; err != nil {
				return apperr.Wrap("reconcile.update", err)
			}
			if _, err := s.Quota.AdvanceWarning(ctx, driveID); err != nil {
				return err
			}
		}

		report.PathsFixed, err = s.Tree.RepairPaths(ctx, driveID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if report.Drift != 0 {
		reconcileDrift.Add(float64(abs(report.Drift)))
		s.logger.Warn().
			Str("drive_id", driveID.String()).
			Int64("recorded", report.Recorded).
			Int64("actual", report.Actual).
			Msg("storage usage drift corrected")
	}
	return report, nil
}

// ReconcileAll reconciles every drive and returns the reports of drives
// that needed a correction.
func (s *Service) ReconcileAll(ctx context.Context) ([]ReconcileReport, error) {
	var ids []uuid.UUID
	if err := repositories.Conn(ctx, s.db).Model(&models.Drive{}).Order("created_at").Pluck("id", &ids).Error; err != nil {
		return nil, apperr.Wrap("reconcile.scan", err)
	}

	var changed []ReconcileReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		r, err := s.Reconcile(ctx, id)
		if err != nil {
			return changed, err
		}
		if r.Drift != 0 || r.PathsFixed > 0 {
			changed = append(changed, *r)
		}
	}
	return changed, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
