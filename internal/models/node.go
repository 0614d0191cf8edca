package models

import "time"

// NodeState is the lifecycle tag of a folder or file. Every listing and
// lookup filters on it explicitly.
type NodeState string

const (
	StateActive  NodeState = "active"
	StateDeleted NodeState = "deleted"
)

// Lifecycle is embedded by Folder and File. DeletedAt records when the
// node entered StateDeleted; nodes removed by the same cascade share it.
type Lifecycle struct {
	State     NodeState  `json:"state" gorm:"type:varchar(16);index;not null"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func (l Lifecycle) Active() bool { return l.State == StateActive }
