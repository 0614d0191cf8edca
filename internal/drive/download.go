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

type DownloadResult struct {
	URL       string          `json:"url"`
	ExpiresAt time.Time       `json:"expiresAt"`
	File      *models.File    `json:"file"`
	Bandwidth BandwidthStatus `json:"bandwidth"`
}

// Download charges the owning drive's bandwidth and returns a short-lived
// URL for the file's content. The owner may always download; anyone else
// only public files of a non-private drive.
func (s *Service) Download(ctx context.Context, requesterID, fileID uuid.UUID) (res *DownloadResult, err error) {
	defer func() { downloadsTotal.WithLabelValues(downloadResult(err)).Inc() }()

	conn := repositories.Conn(ctx, s.db)
	var file models.File
	if err := conn.First(&file, "id = ? AND state = ?", fileID, models.StateActive).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fileNotFound()
		}
		return nil, apperr.Wrap("download.load", err)
	}
	owner, err := loadDrive(ctx, conn, file.DriveID)
	if err != nil {
		return nil, err
	}
	if requesterID != owner.UserID && (!file.IsPublic || owner.IsPrivate) {
		return nil, apperr.New(apperr.Forbidden, "You do not have access to this file")
	}

	var (
		status   BandwidthStatus
		rejected error
		url      string
	)
	err = repositories.InTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		status, err = s.Bandwidth.ChargeDownload(ctx, owner.ID, file.Size)
		if apperr.Is(err, apperr.BandwidthExceeded) {
			// keep the window reset and the notice flag
			rejected = err
			return nil
		}
		if err != nil {
			return err
		}

		if url, err = s.blobs.PresignGet(ctx, file.StoragePath, s.cfg.PresignTTL); err != nil {
			return apperr.Wrap("download.presign", err)
		}
		upd := tx.Model(&models.File{}).Where("id = ?", file.ID).
			UpdateColumn("download_count", repositories.Increment("download_count", 1))
		return apperr.Wrap("download.count", upd.Error)
	})
	if err != nil {
		return nil, err
	}

	if rejected != nil {
		if status.LimitNotice {
			s.notifier.NotifyBandwidthLimit(ctx, owner.UserID, owner.ID, status.Used, status.Limit, status.ResetAt)
		}
		return nil, rejected
	}

	transferredBytes.WithLabelValues("download").Add(float64(file.Size))
	if requesterID != owner.UserID {
		s.notifier.NotifyDownload(ctx, owner.UserID, requesterID, file.ID, file.OriginalName)
	}
	file.DownloadCount++
	return &DownloadResult{
		URL:       url,
		ExpiresAt: s.now().Add(s.cfg.PresignTTL).UTC(),
		File:      &file,
		Bandwidth: status,
	}, nil
}

func downloadResult(err error) string {
	if err == nil {
		return "success"
	}
	return resultLabel(err)
}
