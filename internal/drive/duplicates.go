package drive

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

// DuplicateKind classifies a candidate against a drive's existing files.
type DuplicateKind string

const (
	DuplicateExact DuplicateKind = "exact" // same content hash
	DuplicateName  DuplicateKind = "name"  // same name (case-insensitive), different content
	DuplicateNone  DuplicateKind = "none"
)

// Candidate is a proposed file.
type Candidate struct {
	Name string `json:"name" validate:"required"`
	Hash string `json:"hash" validate:"required"`
	Size int64  `json:"size" validate:"gte=0"`
}

// Classification is the transient result for one candidate.
type Classification struct {
	Candidate
	Kind           DuplicateKind `json:"kind"`
	ExistingFileID *uuid.UUID    `json:"existingFileId,omitempty"`
	ExistingName   string        `json:"existingName,omitempty"`
}

func (c Classification) IsDuplicate() bool { return c.Kind != DuplicateNone }

// Classify is the single classification core. Content identity wins over
// name identity; when several files share a key the oldest one is referenced.
func Classify(existing []models.File, candidates []Candidate) []Classification {
	byHash := make(map[string]*models.File, len(existing))
	byName := make(map[string]*models.File, len(existing))
	for i := range existing {
		f := &existing[i]
		if !f.Active() {
			continue
		}
		if _, ok := byHash[f.ContentHash]; !ok {
			byHash[f.ContentHash] = f
		}
		key := strings.ToLower(f.OriginalName)
		if _, ok := byName[key]; !ok {
			byName[key] = f
		}
	}

	out := make([]Classification, len(candidates))
	for i, c := range candidates {
		out[i] = Classification{Candidate: c, Kind: DuplicateNone}
		if f, ok := byHash[strings.ToLower(c.Hash)]; ok {
			out[i].Kind = DuplicateExact
			out[i].ExistingFileID = ptr(f.ID)
			out[i].ExistingName = f.OriginalName
			continue
		}
		if f, ok := byName[strings.ToLower(strings.TrimSpace(c.Name))]; ok {
			out[i].Kind = DuplicateName
			out[i].ExistingFileID = ptr(f.ID)
			out[i].ExistingName = f.OriginalName
		}
	}
	return out
}

// Detector classifies candidates against the active files of one drive.
// It never writes.
type Detector struct {
	db *gorm.DB
}

func NewDetector(db *gorm.DB) *Detector { return &Detector{db: db} }

// DetectDuplicates classifies a batch of candidates.
func (d *Detector) DetectDuplicates(ctx context.Context, driveID uuid.UUID, candidates []Candidate) ([]Classification, error) {
	files, err := d.activeFiles(ctx, driveID)
	if err != nil {
		return nil, err
	}
	return Classify(files, candidates), nil
}

// CheckFileDuplicate classifies a single candidate.
func (d *Detector) CheckFileDuplicate(ctx context.Context, driveID uuid.UUID, name, hash string) (Classification, error) {
	out, err := d.DetectDuplicates(ctx, driveID, []Candidate{{Name: name, Hash: hash}})
	if err != nil {
		return Classification{}, err
	}
	return out[0], nil
}

func (d *Detector) activeFiles(ctx context.Context, driveID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := repositories.Conn(ctx, d.db).
		Where("drive_id = ? AND state = ?", driveID, models.StateActive).
		Order("created_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, apperr.Wrap("duplicates.load", err)
	}
	return files, nil
}

func ptr[T any](v T) *T { return &v }
