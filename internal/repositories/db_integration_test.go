package repositories_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

// TestConnectDatabase_Postgres runs the migrations against a real Postgres.
// Requires Docker; enabled with TEST_INTEGRATION=1.
func TestConnectDatabase_Postgres(t *testing.T) {
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("drive_test"),
		postgres.WithUsername("drive"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := repositories.ConnectDatabase(dsn)
	require.NoError(t, err)

	d := &models.Drive{
		UserID:           uuid.New(),
		StorageLimit:     1000,
		StorageUsed:      900,
		BandwidthLimit:   1000,
		BandwidthResetAt: time.Now().Add(24 * time.Hour),
		AllowCopying:     models.CopyAllow,
	}
	require.NoError(t, db.Create(d).Error)

	// The guarded increment used by the quota ledger must be atomic on Postgres too.
	res := db.Model(&models.Drive{}).
		Where("id = ? AND storage_used + ? <= storage_limit", d.ID, 200).
		Update("storage_used", repositories.Increment("storage_used", 200))
	require.NoError(t, res.Error)
	assert.Zero(t, res.RowsAffected)

	var got models.Drive
	require.NoError(t, db.First(&got, "id = ?", d.ID).Error)
	assert.Equal(t, int64(900), got.StorageUsed)
}
