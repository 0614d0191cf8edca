// Package notify turns drive events into structured notifications and
// hands them to a delivery sink. Delivery is fire-and-forget: failures are
// logged and never reach the caller.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Type string

const (
	TypeCopyRequest    Type = "COPY_REQUEST"
	TypeCopyApproved   Type = "COPY_APPROVED"
	TypeCopyDenied     Type = "COPY_DENIED"
	TypeDownload       Type = "DOWNLOAD"
	TypeStorageWarning Type = "STORAGE_WARNING"
	TypeBandwidthLimit Type = "BANDWIDTH_LIMIT"
)

// Event is one notification for one recipient.
type Event struct {
	RecipientID uuid.UUID      `json:"recipientId"`
	Type        Type           `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Link        string         `json:"link,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Sink delivers events somewhere durable or visible.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Deliver(ctx context.Context, ev Event) error { return f(ctx, ev) }

const defaultDeliveryTimeout = 5 * time.Second

// Bridge is the producer side. Each Notify* call builds an Event and
// delivers it asynchronously.
type Bridge struct {
	sink    Sink
	logger  zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewBridge(sink Sink, logger zerolog.Logger) *Bridge {
	return &Bridge{
		sink:    sink,
		logger:  logger.With().Str("component", "notify").Logger(),
		timeout: defaultDeliveryTimeout,
	}
}

// Wait blocks until every in-flight delivery has finished.
func (b *Bridge) Wait() { b.wg.Wait() }

func (b *Bridge) emit(ctx context.Context, ev Event) {
	if b == nil || b.sink == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()

		if err := b.sink.Deliver(ctx, ev); err != nil {
			b.logger.Warn().Err(err).
				Str("type", string(ev.Type)).
				Str("recipient", ev.RecipientID.String()).
				Msg("notification delivery failed")
		}
	}()
}

// CopyInfo identifies the parties and file of a copy request.
type CopyInfo struct {
	RequestID   uuid.UUID
	OwnerID     uuid.UUID
	RequesterID uuid.UUID
	FileID      uuid.UUID
	FileName    string
}

func (c CopyInfo) metadata() map[string]any {
	return map[string]any{
		"requestId":   c.RequestID.String(),
		"ownerId":     c.OwnerID.String(),
		"requesterId": c.RequesterID.String(),
		"fileId":      c.FileID.String(),
		"fileName":    c.FileName,
	}
}

// NotifyCopyRequest tells the owner someone asked to copy one of their files.
func (b *Bridge) NotifyCopyRequest(ctx context.Context, info CopyInfo) {
	b.emit(ctx, Event{
		RecipientID: info.OwnerID,
		Type:        TypeCopyRequest,
		Title:       "New copy request",
		Message:     fmt.Sprintf("A user requested a copy of %q.", info.FileName),
		Link:        "/drive/copy-requests/" + info.RequestID.String(),
		Metadata:    info.metadata(),
	})
}

// NotifyCopyApproved tells the requester their copy was made.
func (b *Bridge) NotifyCopyApproved(ctx context.Context, info CopyInfo, copiedFileID uuid.UUID) {
	md := info.metadata()
	md["copiedFileId"] = copiedFileID.String()
	b.emit(ctx, Event{
		RecipientID: info.RequesterID,
		Type:        TypeCopyApproved,
		Title:       "Copy request approved",
		Message:     fmt.Sprintf("%q was copied to your drive.", info.FileName),
		Link:        "/drive/files/" + copiedFileID.String(),
		Metadata:    md,
	})
}

// NotifyCopyDenied tells the requester the owner declined.
func (b *Bridge) NotifyCopyDenied(ctx context.Context, info CopyInfo) {
	b.emit(ctx, Event{
		RecipientID: info.RequesterID,
		Type:        TypeCopyDenied,
		Title:       "Copy request denied",
		Message:     fmt.Sprintf("Your request to copy %q was denied.", info.FileName),
		Metadata:    info.metadata(),
	})
}

// NotifyDownload tells the owner one of their files was downloaded.
func (b *Bridge) NotifyDownload(ctx context.Context, ownerID, downloaderID, fileID uuid.UUID, fileName string) {
	b.emit(ctx, Event{
		RecipientID: ownerID,
		Type:        TypeDownload,
		Title:       "File downloaded",
		Message:     fmt.Sprintf("%q was downloaded.", fileName),
		Link:        "/drive/files/" + fileID.String(),
		Metadata: map[string]any{
			"fileId":       fileID.String(),
			"fileName":     fileName,
			"downloaderId": downloaderID.String(),
		},
	})
}

// NotifyStorageWarning tells the owner their drive crossed threshold percent.
func (b *Bridge) NotifyStorageWarning(ctx context.Context, ownerID, driveID uuid.UUID, threshold int, used, limit int64) {
	b.emit(ctx, Event{
		RecipientID: ownerID,
		Type:        TypeStorageWarning,
		Title:       "Storage almost full",
		Message:     fmt.Sprintf("Your drive is over %d%% full (%d of %d bytes used).", threshold, used, limit),
		Link:        "/drive",
		Metadata: map[string]any{
			"driveId":   driveID.String(),
			"threshold": threshold,
			"used":      used,
			"limit":     limit,
		},
	})
}

// NotifyBandwidthLimit tells the owner their daily download budget is spent.
func (b *Bridge) NotifyBandwidthLimit(ctx context.Context, ownerID, driveID uuid.UUID, used, limit int64, resetAt time.Time) {
	b.emit(ctx, Event{
		RecipientID: ownerID,
		Type:        TypeBandwidthLimit,
		Title:       "Download limit reached",
		Message:     fmt.Sprintf("Your drive reached its daily download limit. It resets at %s.", resetAt.UTC().Format(time.RFC3339)),
		Link:        "/drive",
		Metadata: map[string]any{
			"driveId":   driveID.String(),
			"used":      used,
			"limit":     limit,
			"resetTime": resetAt.UTC().Format(time.RFC3339),
		},
	})
}
