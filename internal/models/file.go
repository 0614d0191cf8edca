package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is a stored blob's metadata. ContentHash and Size are written once
// at upload time and never updated.
type File struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	DriveID       uuid.UUID  `json:"driveId" gorm:"type:uuid;index;not null"`
	FolderID      *uuid.UUID `json:"folderId" gorm:"type:uuid;index"` // nil = drive root
	OriginalName  string     `json:"name" gorm:"not null"`
	StoredName    string     `json:"-" gorm:"not null;uniqueIndex"`  // opaque blob key suffix
	Size          int64      `json:"size" gorm:"<-:create;not null"` // bytes
	MimeType      string     `json:"mimeType" gorm:"not null"`
	ContentHash   string     `json:"contentHash" gorm:"<-:create;type:varchar(64);index;not null"`
	StoragePath   string     `json:"-" gorm:"not null"` // blob store key
	ThumbnailPath *string    `json:"thumbnailPath,omitempty"`
	IsPublic      bool       `json:"isPublic" gorm:"not null"`
	DownloadCount int64      `json:"downloadCount" gorm:"not null;default:0"`
	Lifecycle
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (f *File) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.State == "" {
		f.State = StateActive
	}
	return nil
}
