package drive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/config"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/notify"
	"github.com/rohits-web03/edudrive/internal/repositories"
	"github.com/rohits-web03/edudrive/internal/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	blobs  *repositories.MemoryBlobStore
	events *notify.Recorder
	bridge *notify.Bridge
	clock  *fakeClock
	svc    *Service
}

func testDriveConfig() config.DriveConfig {
	return config.DriveConfig{
		StorageLimit:      1000,
		BandwidthLimit:    1000,
		BandwidthWindow:   24 * time.Hour,
		WarnThresholds:    []int{80, 90},
		MaxFileSize:       500,
		BlockedExtensions: []string{".exe", ".bat"},
		PresignTTL:        15 * time.Minute,
		CopyPolicy:        "REQUEST",
		PrivateByDefault:  false,
	}
}

func newEnv(t *testing.T, mutate ...func(*config.DriveConfig)) *env {
	t.Helper()
	cfg := testDriveConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	e := &env{
		t:      t,
		ctx:    context.Background(),
		db:     testutil.NewDB(t),
		blobs:  repositories.NewMemoryBlobStore(),
		events: &notify.Recorder{},
		clock:  newClock(),
	}
	e.bridge = notify.NewBridge(e.events, zerolog.Nop())
	e.svc = NewService(e.db, e.blobs, e.bridge, cfg, WithClock(e.clock.Now))
	return e
}

// drive creates a drive for a fresh user.
func (e *env) drive() *models.Drive {
	e.t.Helper()
	d, err := e.svc.EnsureDrive(e.ctx, uuid.New())
	require.NoError(e.t, err)
	return d
}

func (e *env) setStorageUsed(driveID uuid.UUID, used int64) {
	e.t.Helper()
	require.NoError(e.t, e.db.Model(&models.Drive{}).Where("id = ?", driveID).Update("storage_used", used).Error)
}

func (e *env) reload(driveID uuid.UUID) *models.Drive {
	e.t.Helper()
	d, err := e.svc.GetDrive(e.ctx, driveID)
	require.NoError(e.t, err)
	return d
}

func (e *env) upload(driveID uuid.UUID, folderID *uuid.UUID, name, content string) (*UploadResult, error) {
	return e.svc.Upload(e.ctx, UploadInput{
		DriveID:  driveID,
		FolderID: folderID,
		Name:     name,
		MimeType: "text/plain",
		Size:     int64(len(content)),
		Content:  bytes.NewReader([]byte(content)),
	})
}

func (e *env) mustUpload(driveID uuid.UUID, folderID *uuid.UUID, name, content string) *models.File {
	e.t.Helper()
	res, err := e.upload(driveID, folderID, name, content)
	require.NoError(e.t, err)
	require.NotNil(e.t, res.File)
	return res.File
}

func (e *env) mustFolder(driveID uuid.UUID, parentID *uuid.UUID, name string) *models.Folder {
	e.t.Helper()
	f, err := e.svc.Tree.CreateFolder(e.ctx, driveID, parentID, name)
	require.NoError(e.t, err)
	return f
}

func (e *env) file(id uuid.UUID) *models.File {
	e.t.Helper()
	var f models.File
	require.NoError(e.t, e.db.First(&f, "id = ?", id).Error)
	return &f
}

func (e *env) folder(id uuid.UUID) *models.Folder {
	e.t.Helper()
	var f models.Folder
	require.NoError(e.t, e.db.First(&f, "id = ?", id).Error)
	return &f
}

func sha(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func requireCode(t *testing.T, err error, code apperr.Code) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	ae := apperr.From(err)
	require.Equal(t, code, ae.Code, "error: %v", err)
	return ae
}
