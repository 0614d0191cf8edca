package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Folder struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	DriveID   uuid.UUID  `json:"driveId" gorm:"type:uuid;index;not null"`
	ParentID  *uuid.UUID `json:"parentId" gorm:"type:uuid;index"` // nil = drive root
	Name      string     `json:"name" gorm:"not null"`
	Path      string     `json:"path" gorm:"not null"` // materialized, root-relative
	SubjectID *uuid.UUID `json:"subjectId,omitempty" gorm:"type:uuid"`
	IsPublic  bool       `json:"isPublic" gorm:"not null"`
	Lifecycle
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (f *Folder) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.State == "" {
		f.State = StateActive
	}
	return nil
}
