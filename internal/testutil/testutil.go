package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/picvault/picvault/internal/migrations"
	"github.com/picvault/picvault/internal/model"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema rolls back and reapplies every migration.
func ResetSchema(ctx context.Context, databaseURL string) error {
	if err := migrations.Reset(ctx, databaseURL); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// NewTestUser creates a test user with sensible defaults.
// The password hash is a placeholder and does not verify.
func NewTestUser(t testing.TB, username string) *model.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.User{
		ID:           model.NewID(),
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestImage creates a test image owned by ownerID.
func NewTestImage(t testing.TB, ownerID string) *model.Image {
	t.Helper()
	id := model.NewID()
	return &model.Image{
		ID:          id,
		Filename:    "photo.jpg",
		URL:         "https://cdn.example.com/images/" + id + ".jpg",
		Format:      model.FormatJPEG,
		PublicID:    "images/" + ownerID + "/" + id + ".jpg",
		OwnerID:     ownerID,
		Tags:        []string{},
		TaggedUsers: []string{},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

// UniqueName generates a unique name for tests.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, time.Now().UnixNano()%1_000_000_000)
}
