package drive

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/notify"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

// CopyOutcome is the result of a copy request. Exactly one of File
// (copied immediately) or Request (waiting for the owner) is set.
type CopyOutcome struct {
	File    *models.File        `json:"file,omitempty"`
	Request *models.CopyRequest `json:"request,omitempty"`
}

// RequestCopy asks for a copy of another user's file into the requester's
// drive. Only files the requester could download are copyable. The source
// drive's policy then decides: DENY refuses, ALLOW copies at
// once, REQUEST records a pending request and notifies the owner.
func (s *Service) RequestCopy(ctx context.Context, requesterID, fileID uuid.UUID, targetFolderID *uuid.UUID) (*CopyOutcome, error) {
	conn := repositories.Conn(ctx, s.db)
	src, err := activeFileByID(ctx, conn, fileID)
	if err != nil {
		return nil, err
	}
	source, err := loadDrive(ctx, conn, src.DriveID)
	if err != nil {
		return nil, err
	}
	if source.UserID == requesterID {
		return nil, apperr.New(apperr.InvalidInput, "The file is already in your drive")
	}
	if !src.IsPublic || source.IsPrivate {
		return nil, apperr.New(apperr.Forbidden, "You do not have access to this file")
	}

	target, err := s.EnsureDrive(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if targetFolderID != nil {
		if _, err := s.Tree.activeFolder(ctx, conn, target.ID, *targetFolderID); err != nil {
			return nil, err
		}
	}

	switch source.AllowCopying {
	case models.CopyAllow:
		f, err := s.copyInto(ctx, src, target.ID, targetFolderID)
		if err != nil {
			return nil, err
		}
		return &CopyOutcome{File: f}, nil

	case models.CopyOnRequest:
		var pending models.CopyRequest
		err := conn.Where("file_id = ? AND requester_id = ? AND status = ?", src.ID, requesterID, models.CopyPending).
			Limit(1).Find(&pending).Error
		if err != nil {
			return nil, apperr.Wrap("copy.request", err)
		}
		if pending.ID != uuid.Nil {
			return &CopyOutcome{Request: &pending}, nil
		}

		req := &models.CopyRequest{
			FileID:         src.ID,
			SourceDriveID:  source.ID,
			RequesterID:    requesterID,
			TargetFolderID: targetFolderID,
			Status:         models.CopyPending,
		}
		if err := conn.Create(req).Error; err != nil {
			return nil, apperr.Wrap("copy.request", err)
		}
		s.notifier.NotifyCopyRequest(ctx, copyInfo(req, source.UserID, src.OriginalName))
		return &CopyOutcome{Request: req}, nil
	}
	return nil, apperr.New(apperr.Forbidden, "The owner does not allow copies of this file")
}

// ApproveCopy performs a pending copy on behalf of the source drive's owner.
func (s *Service) ApproveCopy(ctx context.Context, ownerID, requestID uuid.UUID) (*models.CopyRequest, error) {
	req, source, err := s.pendingRequest(ctx, ownerID, requestID)
	if err != nil {
		return nil, err
	}
	target, err := s.EnsureDrive(ctx, req.RequesterID)
	if err != nil {
		return nil, err
	}

	unlock := s.Tree.lockDrive(target.ID)
	defer unlock()

	var (
		copied *models.File
		key    string
		warn   int
	)
	err = repositories.InTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		if err := s.decide(ctx, tx, req, models.CopyApproved); err != nil {
			return err
		}
		src, err := activeFileByID(ctx, tx, req.FileID)
		if err != nil {
			return err
		}
		if copied, key, warn, err = s.copyLocked(ctx, tx, src, target.ID, req.TargetFolderID); err != nil {
			return err
		}
		req.CopiedFileID = &copied.ID
		return apperr.Wrap("copy.approve", tx.Model(req).Update("copied_file_id", copied.ID).Error)
	})
	if err != nil {
		if key != "" {
			s.deleteBlob(ctx, key)
		}
		return nil, err
	}

	s.notifyWarning(ctx, target.ID, warn)
	s.notifier.NotifyCopyApproved(ctx, copyInfo(req, source.UserID, copied.OriginalName), copied.ID)
	return req, nil
}

// DenyCopy declines a pending request and tells the requester.
func (s *Service) DenyCopy(ctx context.Context, ownerID, requestID uuid.UUID) (*models.CopyRequest, error) {
	req, source, err := s.pendingRequest(ctx, ownerID, requestID)
	if err != nil {
		return nil, err
	}
	err = repositories.InTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		return s.decide(ctx, tx, req, models.CopyDenied)
	})
	if err != nil {
		return nil, err
	}

	name := ""
	if f, err := activeFileByID(ctx, repositories.Conn(ctx, s.db), req.FileID); err == nil {
		name = f.OriginalName
	}
	s.notifier.NotifyCopyDenied(ctx, copyInfo(req, source.UserID, name))
	return req, nil
}

// PendingCopyRequests lists requests waiting for the drive owner.
func (s *Service) PendingCopyRequests(ctx context.Context, driveID uuid.UUID) ([]models.CopyRequest, error) {
	var out []models.CopyRequest
	err := repositories.Conn(ctx, s.db).
		Where("source_drive_id = ? AND status = ?", driveID, models.CopyPending).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Wrap("copy.list", err)
	}
	return out, nil
}

func (s *Service) pendingRequest(ctx context.Context, ownerID, requestID uuid.UUID) (*models.CopyRequest, *models.Drive, error) {
	conn := repositories.Conn(ctx, s.db)
	var req models.CopyRequest
	if err := conn.First(&req, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.FileNotFound, "Copy request not found")
		}
		return nil, nil, apperr.Wrap("copy.load", err)
	}
	source, err := loadDrive(ctx, conn, req.SourceDriveID)
	if err != nil {
		return nil, nil, err
	}
	if source.UserID != ownerID {
		return nil, nil, apperr.New(apperr.NotOwner, "Only the file owner can decide this request")
	}
	if req.Status != models.CopyPending {
		return nil, nil, alreadyDecided(req.Status)
	}
	return &req, source, nil
}

// decide moves a pending request to status. The status guard makes a
// concurrent second decision fail instead of copying twice.
func (s *Service) decide(ctx context.Context, tx *gorm.DB, req *models.CopyRequest, status models.CopyStatus) error {
	at := s.now().UTC()
	res := tx.WithContext(ctx).Model(&models.CopyRequest{}).
		Where("id = ? AND status = ?", req.ID, models.CopyPending).
		Updates(map[string]any{"status": status, "decided_at": at})
	if res.Error != nil {
		return apperr.Wrap("copy.decide", res.Error)
	}
	if res.RowsAffected == 0 {
		return alreadyDecided("")
	}
	req.Status, req.DecidedAt = status, &at
	return nil
}

// copyInto copies src into the target drive as one unit of work.
func (s *Service) copyInto(ctx context.Context, src *models.File, targetDriveID uuid.UUID, folderID *uuid.UUID) (*models.File, error) {
	unlock := s.Tree.lockDrive(targetDriveID)
	defer unlock()

	var (
		copied *models.File
		key    string
		warn   int
	)
	err := repositories.InTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		copied, key, warn, err = s.copyLocked(ctx, tx, src, targetDriveID, folderID)
		return err
	})
	if err != nil {
		if key != "" {
			s.deleteBlob(ctx, key)
		}
		return nil, err
	}
	s.notifyWarning(ctx, targetDriveID, warn)
	return copied, nil
}

// copyLocked writes the copy inside tx with the target drive locked. An
// identical file already in the target drive is returned instead of a new
// one. The returned key names a blob written by this call, so the caller
// can remove it if the transaction fails.
func (s *Service) copyLocked(ctx context.Context, tx *gorm.DB, src *models.File, targetDriveID uuid.UUID, folderID *uuid.UUID) (*models.File, string, int, error) {
	cls, err := s.Detector.CheckFileDuplicate(ctx, targetDriveID, src.OriginalName, src.ContentHash)
	if err != nil {
		return nil, "", 0, err
	}
	if cls.Kind == DuplicateExact {
		existing, err := s.Tree.activeFile(ctx, tx, targetDriveID, *cls.ExistingFileID)
		return existing, "", 0, err
	}

	name, err := s.freeName(ctx, targetDriveID, src.OriginalName)
	if err != nil {
		return nil, "", 0, err
	}
	if err := s.Tree.placeable(ctx, tx, targetDriveID, folderID, name); err != nil {
		return nil, "", 0, err
	}
	if err := s.Quota.Reserve(ctx, targetDriveID, src.Size); err != nil {
		return nil, "", 0, err
	}

	storedName, err := newStoredName(name)
	if err != nil {
		return nil, "", 0, err
	}
	key := blobKey(targetDriveID, storedName)
	if err := s.blobs.Copy(ctx, src.StoragePath, key); err != nil {
		if errors.Is(err, repositories.ErrBlobNotFound) {
			return nil, "", 0, apperr.New(apperr.FileNotFound, "Source content is missing")
		}
		return nil, "", 0, apperr.Wrap("copy.blob", err)
	}

	copied, err := s.Tree.createFileRow(ctx, tx, targetDriveID, folderID, FileMeta{
		Name:          name,
		StoredName:    storedName,
		StoragePath:   key,
		MimeType:      src.MimeType,
		ContentHash:   src.ContentHash,
		Size:          src.Size,
		ThumbnailPath: src.ThumbnailPath,
	})
	if err != nil {
		return nil, key, 0, err
	}
	warn, err := s.Quota.AdvanceWarning(ctx, targetDriveID)
	if err != nil {
		return nil, key, 0, err
	}
	transferredBytes.WithLabelValues("copy").Add(float64(src.Size))
	return copied, key, warn, nil
}

func activeFileByID(ctx context.Context, conn *gorm.DB, id uuid.UUID) (*models.File, error) {
	var f models.File
	err := conn.WithContext(ctx).First(&f, "id = ? AND state = ?", id, models.StateActive).Error
	if err != nil {
		return nil, notFound(err, fileNotFound(), "copy.load")
	}
	return &f, nil
}

func copyInfo(req *models.CopyRequest, ownerID uuid.UUID, fileName string) notify.CopyInfo {
	return notify.CopyInfo{
		RequestID:   req.ID,
		OwnerID:     ownerID,
		RequesterID: req.RequesterID,
		FileID:      req.FileID,
		FileName:    fileName,
	}
}

func alreadyDecided(status models.CopyStatus) error {
	e := apperr.New(apperr.InvalidInput, "Copy request was already decided")
	if status != "" {
		e = e.WithDetails(map[string]any{"status": string(status)})
	}
	return e
}
