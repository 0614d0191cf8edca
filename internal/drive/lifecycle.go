package drive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

func (s *Service) DeleteFile(ctx context.Context, driveID, fileID uuid.UUID) error {
	return s.Tree.SoftDelete(ctx, driveID, FileRef(fileID))
}

func (s *Service) DeleteFolder(ctx context.Context, driveID, folderID uuid.UUID) error {
	return s.Tree.SoftDelete(ctx, driveID, FolderRef(folderID))
}

func (s *Service) RestoreFile(ctx context.Context, driveID, fileID uuid.UUID) error {
	return s.Tree.Restore(ctx, driveID, FileRef(fileID))
}

func (s *Service) RestoreFolder(ctx context.Context, driveID, folderID uuid.UUID) error {
	return s.Tree.Restore(ctx, driveID, FolderRef(folderID))
}

// PurgeFile permanently removes a soft-deleted file and releases its
// bytes. Active files cannot be purged. The blob is deleted after the
// row; a failed blob delete leaves an orphan object, not a dangling row.
func (s *Service) PurgeFile(ctx context.Context, driveID, fileID uuid.UUID) error {
	unlock := s.Tree.lockDrive(driveID)
	defer unlock()

	var file *models.File
	err := repositories.InTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		if file, err = s.Tree.fileIn(ctx, tx, driveID, fileID); err != nil {
			return err
		}
		if file.Active() {
			return apperr.New(apperr.InvalidInput, "Only deleted files can be purged")
		}
		if err := tx.Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
			return apperr.Wrap("purge.delete", err)
		}
		if err := s.Quota.Release(ctx, driveID, file.Size); err != nil {
			return err
		}
		_, err = s.Quota.AdvanceWarning(ctx, driveID)
		return err
	})
	if err != nil {
		return err
	}

	s.deleteBlob(ctx, file.StoragePath)
	s.logger.Info().
		Str("drive_id", driveID.String()).
		Str("file_id", fileID.String()).
		Int64("released", file.Size).
		Msg("file purged")
	return nil
}

// PurgeReport counts what PurgeDeleted removed.
type PurgeReport struct {
	Files   int   `json:"files"`
	Folders int   `json:"folders"`
	Bytes   int64 `json:"bytes"`
	Failed  int   `json:"failed"`
}

// PurgeDeleted purges every file soft-deleted at least olderThan ago, then
// removes deleted folders left empty. Individual failures are logged and
// counted, and returned joined once the batch completes.
func (s *Service) PurgeDeleted(ctx context.Context, olderThan time.Duration) (PurgeReport, error) {
	var report PurgeReport
	cutoff := s.now().Add(-olderThan).UTC()
	conn := repositories.Conn(ctx, s.db)

	var files []models.File
	err := conn.Where("state = ? AND deleted_at <= ?", models.StateDeleted, cutoff).
		Order("deleted_at ASC").
		Find(&files).Error
	if err != nil {
		return report, apperr.Wrap("purge.scan", err)
	}

	var errs error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.PurgeFile(ctx, f.DriveID, f.ID); err != nil {
			report.Failed++
			errs = errors.Join(errs, err)
			s.logger.Error().Err(err).Str("file_id", f.ID.String()).Msg("purge failed")
			continue
		}
		report.Files++
		report.Bytes += f.Size
	}

	// Leaves first: each pass removes deleted folders without children.
	for {
		res := conn.Where(
			"state = ? AND deleted_at <= ? "+
				"AND NOT EXISTS (SELECT 1 FROM files WHERE files.folder_id = folders.id) "+
				"AND NOT EXISTS (SELECT 1 FROM folders c WHERE c.parent_id = folders.id)",
			models.StateDeleted, cutoff,
		).Delete(&models.Folder{})
		if res.Error != nil {
			return report, apperr.Wrap("purge.folders", res.Error)
		}
		if res.RowsAffected == 0 {
			break
		}
		report.Folders += int(res.RowsAffected)
	}

	s.logger.Info().
		Int("files", report.Files).
		Int("folders", report.Folders).
		Int64("bytes", report.Bytes).
		Int("failed", report.Failed).
		Msg("purge finished")
	return report, errs
}
