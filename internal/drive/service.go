// Package drive is the storage core: per-user drives, their folder tree,
// the storage and bandwidth ledgers, duplicate detection and the copy
// workflow between drives.
package drive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/config"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/notify"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

const (
	driveCacheSize = 4096
	driveCacheTTL  = 10 * time.Minute
)

// Service wires the ledgers, the tree and the blob store into the
// operations exposed to the HTTP layer and the CLI.
type Service struct {
	db       *gorm.DB
	blobs    repositories.BlobStore
	notifier *notify.Bridge
	cfg      config.DriveConfig

	Quota     *QuotaLedger
	Bandwidth *BandwidthLedger
	Tree      *Tree
	Detector  *Detector

	driveIDs *expirable.LRU[uuid.UUID, uuid.UUID] // user id -> drive id
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now for every component of the service.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(db *gorm.DB, blobs repositories.BlobStore, notifier *notify.Bridge, cfg config.DriveConfig, opts ...Option) *Service {
	s := &Service{
		db:       db,
		blobs:    blobs,
		notifier: notifier,
		cfg:      cfg,
		driveIDs: expirable.NewLRU[uuid.UUID, uuid.UUID](driveCacheSize, nil, driveCacheTTL),
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "drive").Logger()

	s.Quota = NewQuotaLedger(db, cfg.WarnThresholds)
	s.Bandwidth = NewBandwidthLedger(db, cfg.BandwidthWindow, s.now)
	s.Tree = NewTree(db, s.now)
	s.Detector = NewDetector(db)
	return s
}

// EnsureDrive returns the user's drive, creating it with the configured
// defaults on first access. Concurrent first calls converge on one row.
func (s *Service) EnsureDrive(ctx context.Context, userID uuid.UUID) (*models.Drive, error) {
	if userID == uuid.Nil {
		return nil, apperr.New(apperr.Unauthorized, "Missing user")
	}
	if id, ok := s.driveIDs.Get(userID); ok {
		d, err := loadDrive(ctx, repositories.Conn(ctx, s.db), id)
		if err == nil {
			return d, nil
		}
		s.driveIDs.Remove(userID)
		if !apperr.Is(err, apperr.DriveNotFound) {
			return nil, err
		}
	}

	conn := repositories.Conn(ctx, s.db)
	fresh := models.Drive{
		UserID:           userID,
		StorageLimit:     s.cfg.StorageLimit,
		BandwidthLimit:   s.cfg.BandwidthLimit,
		BandwidthResetAt: s.now().Add(s.cfg.BandwidthWindow).UTC(),
		IsPrivate:        s.cfg.PrivateByDefault,
		AllowCopying:     models.CopyPolicy(s.cfg.CopyPolicy),
	}
	err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&fresh).Error
	if err != nil {
		return nil, apperr.Wrap("drive.ensure", err)
	}

	var d models.Drive
	if err := conn.First(&d, "user_id = ?", userID).Error; err != nil {
		return nil, apperr.Wrap("drive.ensure", err)
	}
	if d.ID == fresh.ID {
		s.logger.Info().Str("user_id", userID.String()).Str("drive_id", d.ID.String()).Msg("drive created")
	}
	s.driveIDs.Add(userID, d.ID)
	return &d, nil
}

// DriveFor returns the user's drive without creating one.
func (s *Service) DriveFor(ctx context.Context, userID uuid.UUID) (*models.Drive, error) {
	var d models.Drive
	err := repositories.Conn(ctx, s.db).First(&d, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.DriveNotFound, "Drive not found")
	}
	if err != nil {
		return nil, apperr.Wrap("drive.lookup", err)
	}
	return &d, nil
}

func (s *Service) GetDrive(ctx context.Context, driveID uuid.UUID) (*models.Drive, error) {
	return loadDrive(ctx, repositories.Conn(ctx, s.db), driveID)
}

// UpdateSettings changes the drive's visibility and copy policy.
func (s *Service) UpdateSettings(ctx context.Context, driveID uuid.UUID, isPrivate *bool, policy *models.CopyPolicy) (*models.Drive, error) {
	updates := map[string]any{}
	if isPrivate != nil {
		updates["is_private"] = *isPrivate
	}
	if policy != nil {
		if !policy.Valid() {
			return nil, apperr.Newf(apperr.InvalidInput, "unknown copy policy %q", *policy)
		}
		updates["allow_copying"] = *policy
	}
	if len(updates) > 0 {
		res := repositories.Conn(ctx, s.db).Model(&models.Drive{}).Where("id = ?", driveID).Updates(updates)
		if res.Error != nil {
			return nil, apperr.Wrap("drive.settings", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, apperr.New(apperr.DriveNotFound, "Drive not found")
		}
	}
	return s.GetDrive(ctx, driveID)
}

// Usage summarizes a drive's storage and bandwidth position.
type Usage struct {
	DriveID          uuid.UUID `json:"driveId"`
	StorageUsed      int64     `json:"storageUsed"`
	StorageLimit     int64     `json:"storageLimit"`
	StoragePercent   float64   `json:"storagePercent"`
	BandwidthUsed    int64     `json:"bandwidthUsed"`
	BandwidthLimit   int64     `json:"bandwidthLimit"`
	BandwidthPercent float64   `json:"bandwidthPercent"`
	BandwidthResetAt time.Time `json:"bandwidthResetAt"`
	FileCount        int64     `json:"fileCount"`
	FolderCount      int64     `json:"folderCount"`
}

func (s *Service) Usage(ctx context.Context, driveID uuid.UUID) (*Usage, error) {
	conn := repositories.Conn(ctx, s.db)
	d, err := loadDrive(ctx, conn, driveID)
	if err != nil {
		return nil, err
	}
	bw, err := s.Bandwidth.Status(ctx, driveID)
	if err != nil {
		return nil, err
	}

	u := &Usage{
		DriveID:          d.ID,
		StorageUsed:      d.StorageUsed,
		StorageLimit:     d.StorageLimit,
		StoragePercent:   d.StoragePercent(),
		BandwidthUsed:    bw.Used,
		BandwidthLimit:   bw.Limit,
		BandwidthResetAt: bw.ResetAt,
	}
	if bw.Limit > 0 {
		u.BandwidthPercent = float64(bw.Used) / float64(bw.Limit) * 100
	}
	if err := conn.Model(&models.File{}).Where("drive_id = ? AND state = ?", driveID, models.StateActive).Count(&u.FileCount).Error; err != nil {
		return nil, apperr.Wrap("drive.usage", err)
	}
	if err := conn.Model(&models.Folder{}).Where("drive_id = ? AND state = ?", driveID, models.StateActive).Count(&u.FolderCount).Error; err != nil {
		return nil, apperr.Wrap("drive.usage", err)
	}
	return u, nil
}

// GetFile returns an active file of the drive.
func (s *Service) GetFile(ctx context.Context, driveID, fileID uuid.UUID) (*models.File, error) {
	return s.Tree.activeFile(ctx, repositories.Conn(ctx, s.db), driveID, fileID)
}

func (s *Service) MoveFile(ctx context.Context, driveID, fileID uuid.UUID, folderID *uuid.UUID) error {
	return s.Tree.Move(ctx, driveID, FileRef(fileID), folderID)
}

func (s *Service) MoveFolder(ctx context.Context, driveID, folderID uuid.UUID, parentID *uuid.UUID) error {
	return s.Tree.Move(ctx, driveID, FolderRef(folderID), parentID)
}

func (s *Service) RenameFile(ctx context.Context, driveID, fileID uuid.UUID, name string) error {
	return s.Tree.Rename(ctx, driveID, FileRef(fileID), name)
}

func (s *Service) RenameFolder(ctx context.Context, driveID, folderID uuid.UUID, name string) error {
	return s.Tree.Rename(ctx, driveID, FolderRef(folderID), name)
}

// notifyWarning tells the drive owner that usage crossed a threshold.
func (s *Service) notifyWarning(ctx context.Context, driveID uuid.UUID, threshold int) {
	if threshold == 0 {
		return
	}
	d, err := s.GetDrive(ctx, driveID)
	if err != nil {
		s.logger.Warn().Err(err).Str("drive_id", driveID.String()).Msg("storage warning skipped")
		return
	}
	s.notifier.NotifyStorageWarning(ctx, d.UserID, d.ID, threshold, d.StorageUsed, d.StorageLimit)
}

func (s *Service) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil && !errors.Is(err, repositories.ErrBlobNotFound) {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to delete blob")
	}
}

// resultLabel maps an error to a coarse metric label.
func resultLabel(err error) string {
	switch code := apperr.CodeOf(err); {
	case code == apperr.StorageExceeded || code == apperr.BandwidthExceeded:
		return "quota"
	case code == apperr.DuplicateFound:
		return "duplicate"
	case apperr.IsValidation(err):
		return "invalid"
	case code == apperr.OperationFailed:
		return "failed"
	default:
		return "rejected"
	}
}

// MaxFileSize is the largest accepted upload in bytes.
func (s *Service) MaxFileSize() int64 { return s.cfg.MaxFileSize }
