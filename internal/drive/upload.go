package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/pathsafe"
	"github.com/rohits-web03/edudrive/internal/repositories"
	"github.com/rohits-web03/edudrive/internal/utils"
)

// DuplicatePolicy decides what an upload does when the duplicate
// detector flags it.
type DuplicatePolicy string

const (
	PolicyReject DuplicatePolicy = "reject" // DUPLICATE_FOUND for any duplicate
	PolicySkip   DuplicatePolicy = "skip"   // exact: return the existing file
	PolicyRename DuplicatePolicy = "rename" // keep both, renaming on a name clash
	PolicyAllow  DuplicatePolicy = "allow"  // ignore classification
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyReject, nil
	case PolicyReject, PolicySkip, PolicyRename, PolicyAllow:
		return p, nil
	}
	return "", apperr.Newf(apperr.InvalidInput, "unknown duplicate policy %q", s).
		WithDetails(map[string]any{"field": "duplicatePolicy"})
}

// UploadInput describes one file to commit into a drive. Content is set
// for direct uploads; CompleteUpload leaves it nil and names the blob
// already written through a presigned URL.
type UploadInput struct {
	DriveID     uuid.UUID
	FolderID    *uuid.UUID
	Name        string
	MimeType    string
	Size        int64
	ContentHash string
	Content     io.ReadSeeker
	StoredName  string
	IsPublic    bool
	Policy      DuplicatePolicy
}

type UploadResult struct {
	File           *models.File    `json:"file"`
	Skipped        bool            `json:"skipped"`
	Duplicate      *Classification `json:"duplicate,omitempty"`
	StorageWarning int             `json:"storageWarning,omitempty"`
}

type PresignInput struct {
	DriveID     uuid.UUID
	FolderID    *uuid.UUID
	Name        string
	MimeType    string
	Size        int64
	ContentHash string
	Policy      DuplicatePolicy
}

type PresignResult struct {
	UploadURL  string          `json:"uploadUrl,omitempty"`
	StoredName string          `json:"storedName,omitempty"`
	ExpiresAt  time.Time       `json:"expiresAt,omitempty"`
	Duplicate  *Classification `json:"duplicate,omitempty"`

	// Existing is set when the skip policy matched an identical file and
	// nothing needs to be uploaded.
	Existing *models.File `json:"existing,omitempty"`
}

// pendingFile is a validated upload waiting for its commit transaction.
type pendingFile struct {
	driveID  uuid.UUID
	folderID *uuid.UUID
	meta     FileMeta
	policy   DuplicatePolicy
}

var storedNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{32}(\.[a-z0-9]{1,16})?$`)

// Upload stores content and commits it into the drive. Quota reservation
// and the file row are written in one transaction; the blob is removed
// again if that transaction does not commit.
func (s *Service) Upload(ctx context.Context, in UploadInput) (res *UploadResult, err error) {
	defer func() {
		uploadsTotal.WithLabelValues(uploadResult(err, res != nil && res.Skipped)).Inc()
	}()

	if in.Content == nil {
		return nil, apperr.New(apperr.InvalidInput, "File content is required")
	}
	name, err := s.checkUpload(in.Name, in.Size)
	if err != nil {
		return nil, err
	}
	policy := in.Policy
	if policy == "" {
		policy = PolicyReject
	}

	fp, err := ComputeFingerprint(in.Content)
	if err != nil {
		return nil, apperr.Wrap("upload.fingerprint", err)
	}
	if in.Size > 0 && in.Size != fp.Size {
		return nil, apperr.New(apperr.InvalidInput, "Declared size does not match content").
			WithDetails(map[string]any{"declared": in.Size, "actual": fp.Size})
	}
	if _, err := s.checkUpload(name, fp.Size); err != nil {
		return nil, err
	}
	if in.ContentHash != "" {
		declared, err := NormalizeHash(in.ContentHash)
		if err != nil {
			return nil, err
		}
		if declared != fp.Hash {
			return nil, apperr.New(apperr.InvalidInput, "Declared hash does not match content")
		}
	}

	p := pendingFile{
		driveID:  in.DriveID,
		folderID: in.FolderID,
		policy:   policy,
		meta: FileMeta{
			Name:        name,
			MimeType:    mimeOrDefault(in.MimeType),
			ContentHash: fp.Hash,
			Size:        fp.Size,
			IsPublic:    in.IsPublic,
		},
	}

	if early, err := s.precheck(ctx, p); err != nil || early != nil {
		return early, err
	}

	if p.meta.StoredName, err = newStoredName(name); err != nil {
		return nil, err
	}
	p.meta.StoragePath = blobKey(p.driveID, p.meta.StoredName)
	if err := s.blobs.Put(ctx, p.meta.StoragePath, in.Content, fp.Size, p.meta.MimeType); err != nil {
		return nil, apperr.Wrap("upload.store", err)
	}

	res, err = s.commit(ctx, p)
	if err != nil || res.Skipped {
		s.deleteBlob(ctx, p.meta.StoragePath)
	}
	return res, err
}

// PresignUpload validates an upload and returns a URL the client PUTs the
// content to. Nothing is reserved; CompleteUpload commits.
func (s *Service) PresignUpload(ctx context.Context, in PresignInput) (*PresignResult, error) {
	name, err := s.checkUpload(in.Name, in.Size)
	if err != nil {
		return nil, err
	}
	hash, err := NormalizeHash(in.ContentHash)
	if err != nil {
		return nil, err
	}
	policy := in.Policy
	if policy == "" {
		policy = PolicyReject
	}

	p := pendingFile{
		driveID:  in.DriveID,
		folderID: in.FolderID,
		policy:   policy,
		meta:     FileMeta{Name: name, ContentHash: hash, Size: in.Size},
	}
	early, err := s.precheck(ctx, p)
	if err != nil {
		return nil, err
	}
	if early != nil {
		return &PresignResult{Existing: early.File, Duplicate: early.Duplicate}, nil
	}

	storedName, err := newStoredName(name)
	if err != nil {
		return nil, err
	}
	url, err := s.blobs.PresignPut(ctx, blobKey(in.DriveID, storedName), s.cfg.PresignTTL)
	if err != nil {
		return nil, apperr.Wrap("upload.presign", err)
	}
	return &PresignResult{
		UploadURL:  url,
		StoredName: storedName,
		ExpiresAt:  s.now().Add(s.cfg.PresignTTL).UTC(),
	}, nil
}

// CompleteUpload commits a blob written through a presigned URL. The blob
// must exist with the declared size; the declared hash is recorded as is.
func (s *Service) CompleteUpload(ctx context.Context, in UploadInput) (res *UploadResult, err error) {
	defer func() {
		uploadsTotal.WithLabelValues(uploadResult(err, res != nil && res.Skipped)).Inc()
	}()

	name, err := s.checkUpload(in.Name, in.Size)
	if err != nil {
		return nil, err
	}
	hash, err := NormalizeHash(in.ContentHash)
	if err != nil {
		return nil, err
	}
	if !storedNamePattern.MatchString(in.StoredName) {
		return nil, apperr.New(apperr.InvalidInput, "Invalid stored name").
			WithDetails(map[string]any{"field": "storedName"})
	}

	// A retried completion returns the committed file and leaves its blob alone.
	committed, err := s.fileByStoredName(ctx, in.StoredName)
	if err != nil {
		return nil, err
	}
	if committed != nil {
		if committed.DriveID != in.DriveID {
			return nil, apperr.New(apperr.InvalidInput, "Stored name already in use").
				WithDetails(map[string]any{"field": "storedName"})
		}
		if committed.State != models.StateActive {
			return nil, fileNotFound()
		}
		return &UploadResult{File: committed}, nil
	}

	key := blobKey(in.DriveID, in.StoredName)
	info, err := s.blobs.Stat(ctx, key)
	if errors.Is(err, repositories.ErrBlobNotFound) {
		return nil, apperr.New(apperr.FileNotFound, "Uploaded content not found").
			WithDetails(map[string]any{"storedName": in.StoredName})
	}
	if err != nil {
		return nil, apperr.Wrap("upload.stat", err)
	}
	if info.Size != in.Size {
		s.deleteUnreferenced(ctx, in.StoredName, key)
		return nil, apperr.New(apperr.InvalidInput, "Uploaded size does not match declared size").
			WithDetails(map[string]any{"declared": in.Size, "actual": info.Size})
	}

	policy := in.Policy
	if policy == "" {
		policy = PolicyReject
	}
	p := pendingFile{
		driveID:  in.DriveID,
		folderID: in.FolderID,
		policy:   policy,
		meta: FileMeta{
			Name:        name,
			StoredName:  in.StoredName,
			StoragePath: key,
			MimeType:    mimeOrDefault(in.MimeType),
			ContentHash: hash,
			Size:        in.Size,
			IsPublic:    in.IsPublic,
		},
	}
	res, err = s.commit(ctx, p)
	if err != nil || res.Skipped {
		s.deleteUnreferenced(ctx, in.StoredName, key)
	}
	return res, err
}

// fileByStoredName returns the file row of any state that owns storedName,
// or nil when the name was never committed.
func (s *Service) fileByStoredName(ctx context.Context, storedName string) (*models.File, error) {
	var f models.File
	err := repositories.Conn(ctx, s.db).Where("stored_name = ?", storedName).Limit(1).Find(&f).Error
	if err != nil {
		return nil, apperr.Wrap("upload.lookup", err)
	}
	if f.ID == uuid.Nil {
		return nil, nil
	}
	return &f, nil
}

// deleteUnreferenced removes an uncommitted blob. A concurrent completion
// may have committed the same stored name, in which case the blob stays.
func (s *Service) deleteUnreferenced(ctx context.Context, storedName, key string) {
	f, err := s.fileByStoredName(context.WithoutCancel(ctx), storedName)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("blob cleanup skipped")
		return
	}
	if f == nil {
		s.deleteBlob(ctx, key)
	}
}

// CheckDuplicates classifies a batch of proposed files against the drive.
func (s *Service) CheckDuplicates(ctx context.Context, driveID uuid.UUID, candidates []Candidate) ([]Classification, error) {
	for i := range candidates {
		hash, err := NormalizeHash(candidates[i].Hash)
		if err != nil {
			return nil, err
		}
		candidates[i].Hash = hash
	}
	if _, err := s.GetDrive(ctx, driveID); err != nil {
		return nil, err
	}
	return s.Detector.DetectDuplicates(ctx, driveID, candidates)
}

// precheck rejects an upload before any bytes move. It returns a result
// only when the skip policy short-circuits to an existing file. The
// commit transaction repeats these checks authoritatively.
func (s *Service) precheck(ctx context.Context, p pendingFile) (*UploadResult, error) {
	if _, err := s.GetDrive(ctx, p.driveID); err != nil {
		return nil, err
	}
	if p.folderID != nil {
		if _, err := s.Tree.activeFolder(ctx, repositories.Conn(ctx, s.db), p.driveID, *p.folderID); err != nil {
			return nil, err
		}
	}

	cls, err := s.Detector.CheckFileDuplicate(ctx, p.driveID, p.meta.Name, p.meta.ContentHash)
	if err != nil {
		return nil, err
	}
	switch {
	case p.policy == PolicySkip && cls.Kind == DuplicateExact:
		existing, err := s.Tree.activeFile(ctx, repositories.Conn(ctx, s.db), p.driveID, *cls.ExistingFileID)
		if err != nil {
			return nil, err
		}
		return &UploadResult{File: existing, Skipped: true, Duplicate: &cls}, nil
	case rejects(p.policy, cls):
		return nil, duplicateError(cls)
	}

	if err := s.Quota.Available(ctx, p.driveID, p.meta.Size); err != nil {
		quotaRejections.WithLabelValues("storage").Inc()
		return nil, err
	}
	return nil, nil
}

// commit runs the write transaction of an upload under the drive lock:
// classification and policy, sibling check, quota reservation, file row,
// warning bracket. The storage warning is sent after commit.
func (s *Service) commit(ctx context.Context, p pendingFile) (*UploadResult, error) {
	unlock := s.Tree.lockDrive(p.driveID)
	defer unlock()

	res := &UploadResult{}
	err := repositories.InTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		cls, err := s.Detector.CheckFileDuplicate(ctx, p.driveID, p.meta.Name, p.meta.ContentHash)
		if err != nil {
			return err
		}
		if cls.IsDuplicate() {
			res.Duplicate = &cls
		}

		meta := p.meta
		switch {
		case p.policy == PolicySkip && cls.Kind == DuplicateExact:
			existing, err := s.Tree.activeFile(ctx, tx, p.driveID, *cls.ExistingFileID)
			if err != nil {
				return err
			}
			res.File, res.Skipped = existing, true
			return nil
		case rejects(p.policy, cls):
			return duplicateError(cls)
		case p.policy == PolicyRename:
			if meta.Name, err = s.freeName(ctx, p.driveID, meta.Name); err != nil {
				return err
			}
		}

		if err := s.Tree.placeable(ctx, tx, p.driveID, p.folderID, meta.Name); err != nil {
			return err
		}
		if err := s.Quota.Reserve(ctx, p.driveID, meta.Size); err != nil {
			return err
		}
		if res.File, err = s.Tree.createFileRow(ctx, tx, p.driveID, p.folderID, meta); err != nil {
			return err
		}
		res.StorageWarning, err = s.Quota.AdvanceWarning(ctx, p.driveID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !res.Skipped {
		transferredBytes.WithLabelValues("upload").Add(float64(res.File.Size))
		s.notifyWarning(ctx, p.driveID, res.StorageWarning)
		s.logger.Info().
			Str("drive_id", p.driveID.String()).
			Str("file_id", res.File.ID.String()).
			Int64("size", res.File.Size).
			Msg("file uploaded")
	}
	return res, nil
}

// freeName returns name, or "base (n).ext" with the smallest n that no
// active file of the drive uses, compared case-insensitively.
func (s *Service) freeName(ctx context.Context, driveID uuid.UUID, name string) (string, error) {
	files, err := s.Detector.activeFiles(ctx, driveID)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(files))
	for _, f := range files {
		taken[strings.ToLower(f.OriginalName)] = true
	}
	if !taken[strings.ToLower(name)] {
		return name, nil
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if taken[strings.ToLower(candidate)] {
			continue
		}
		return pathsafe.ValidateName(candidate)
	}
}

// checkUpload validates the name, size and extension of an upload and
// returns the trimmed name.
func (s *Service) checkUpload(name string, size int64) (string, error) {
	clean, err := pathsafe.ValidateName(name)
	if err != nil {
		return "", err
	}
	if size < 0 {
		return "", apperr.New(apperr.InvalidInput, "size must not be negative")
	}
	if s.cfg.MaxFileSize > 0 && size > s.cfg.MaxFileSize {
		return "", apperr.New(apperr.FileTooLarge, "File exceeds the maximum upload size").
			WithDetails(map[string]any{"size": size, "maxSize": s.cfg.MaxFileSize})
	}
	if ext := strings.ToLower(path.Ext(clean)); ext != "" && slices.Contains(s.cfg.BlockedExtensions, ext) {
		return "", apperr.Newf(apperr.InvalidFileType, "Files of type %s are not allowed", ext).
			WithDetails(map[string]any{"extension": ext})
	}
	return clean, nil
}

// rejects reports whether policy refuses the classified candidate.
// Rename and allow never refuse here; skip refuses name-only clashes.
func rejects(policy DuplicatePolicy, cls Classification) bool {
	switch policy {
	case PolicyReject:
		return cls.IsDuplicate()
	case PolicySkip:
		return cls.Kind == DuplicateName
	}
	return false
}

func duplicateError(cls Classification) error {
	details := map[string]any{"kind": string(cls.Kind), "name": cls.Name}
	if cls.ExistingFileID != nil {
		details["existingFileId"] = cls.ExistingFileID.String()
		details["existingName"] = cls.ExistingName
	}
	msg := "A file with the same content already exists"
	if cls.Kind == DuplicateName {
		msg = "A file with the same name already exists"
	}
	return apperr.New(apperr.DuplicateFound, msg).WithDetails(details)
}

// newStoredName returns an opaque blob name that keeps only a safe form of
// the original extension.
func newStoredName(original string) (string, error) {
	token, err := utils.GenerateSecureToken(24)
	if err != nil {
		return "", apperr.Wrap("upload.name", err)
	}
	ext := strings.ToLower(path.Ext(original))
	if len(ext) < 2 || len(ext) > 17 {
		return token, nil
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return token, nil
		}
	}
	return token + ext, nil
}

func blobKey(driveID uuid.UUID, storedName string) string {
	return "drives/" + driveID.String() + "/" + storedName
}

func mimeOrDefault(m string) string {
	if m = strings.TrimSpace(m); m == "" {
		return "application/octet-stream"
	}
	return m
}
