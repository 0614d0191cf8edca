package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CopyStatus string

const (
	CopyPending  CopyStatus = "pending"
	CopyApproved CopyStatus = "approved"
	CopyDenied   CopyStatus = "denied"
)

// CopyRequest asks the owner of SourceDriveID for a copy of FileID into
// the requester's drive.
type CopyRequest struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	FileID         uuid.UUID  `json:"fileId" gorm:"type:uuid;index;not null"`
	SourceDriveID  uuid.UUID  `json:"sourceDriveId" gorm:"type:uuid;index;not null"`
	RequesterID    uuid.UUID  `json:"requesterId" gorm:"type:uuid;index;not null"`
	TargetFolderID *uuid.UUID `json:"targetFolderId" gorm:"type:uuid"`
	Status         CopyStatus `json:"status" gorm:"type:varchar(16);not null"`
	CopiedFileID   *uuid.UUID `json:"copiedFileId,omitempty" gorm:"type:uuid"`
	DecidedAt      *time.Time `json:"decidedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (c *CopyRequest) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CopyPending
	}
	return nil
}
