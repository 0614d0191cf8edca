package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CopyPolicy controls whether other users may copy files out of a drive.
type CopyPolicy string

const (
	CopyAllow     CopyPolicy = "ALLOW"
	CopyOnRequest CopyPolicy = "REQUEST"
	CopyDeny      CopyPolicy = "DENY"
)

func (p CopyPolicy) Valid() bool {
	switch p {
	case CopyAllow, CopyOnRequest, CopyDeny:
		return true
	}
	return false
}

// Drive is a user's storage container. One per user, created lazily.
type Drive struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `json:"userId" gorm:"type:uuid;uniqueIndex;not null"`

	StorageUsed      int64 `json:"storageUsed" gorm:"not null;default:0"` // bytes
	StorageLimit     int64 `json:"storageLimit" gorm:"not null"`          // bytes
	StorageWarnLevel int   `json:"-" gorm:"not null;default:0"`           // last notified threshold percent

	BandwidthUsed     int64     `json:"bandwidthUsed" gorm:"not null;default:0"`
	BandwidthLimit    int64     `json:"bandwidthLimit" gorm:"not null"`
	BandwidthResetAt  time.Time `json:"bandwidthResetAt" gorm:"not null"`
	BandwidthNotified bool      `json:"-" gorm:"not null"` // limit notification sent for the current window

	IsPrivate    bool       `json:"isPrivate" gorm:"not null"`
	AllowCopying CopyPolicy `json:"allowCopying" gorm:"type:varchar(16);not null"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (d *Drive) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// StoragePercent is storageUsed / storageLimit * 100.
func (d *Drive) StoragePercent() float64 {
	if d.StorageLimit <= 0 {
		return 100
	}
	return float64(d.StorageUsed) / float64(d.StorageLimit) * 100
}
