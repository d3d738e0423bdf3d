package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCartTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	carts := `
CREATE TABLE IF NOT EXISTS carts (
  user_id TEXT PRIMARY KEY,
  items TEXT NOT NULL,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(carts).Error)

	mr := miniredis.RunT(t)
	client := redisclient.NewFromClient(redislib.NewClient(&redislib.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	return NewRepository(db, client, nil), db
}

func TestRepositorySaveUpsertsItems(t *testing.T) {
	repo, db := setupCartTestRepo(t)
	ctx := context.Background()

	lines, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, repo.Save(ctx, "u1", []Line{tee(1)}))
	require.NoError(t, repo.Save(ctx, "u1", []Line{tee(3), {ProductID: "2", Name: "Jeans", Price: 1599, Size: "32", Quantity: 1}}))

	lines, err = repo.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "32", lines[1].Size)

	var count int64
	require.NoError(t, db.Table("carts").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.Error(t, repo.Save(ctx, "", nil))
}

func TestRepositorySubscribeDeliversInitialAndChanges(t *testing.T) {
	repo, _ := setupCartTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "u1", []Line{tee(1)}))

	snapshots := make(chan []Line, 4)
	errs := make(chan error, 1)
	cancel, err := repo.Subscribe(ctx, "u1", func(lines []Line) { snapshots <- lines }, func(err error) { errs <- err })
	require.NoError(t, err)
	defer cancel()

	select {
	case initial := <-snapshots:
		require.Len(t, initial, 1)
		assert.Equal(t, 1, initial[0].Quantity)
	default:
		t.Fatal("initial snapshot must be delivered before Subscribe returns")
	}

	require.NoError(t, repo.Save(ctx, "u1", []Line{tee(5)}))

	select {
	case changed := <-snapshots:
		require.Len(t, changed, 1)
		assert.Equal(t, 5, changed[0].Quantity)
	case err := <-errs:
		t.Fatalf("unexpected subscription error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestRepositorySubscribeStopsOnCancel(t *testing.T) {
	repo, _ := setupCartTestRepo(t)
	ctx := context.Background()

	errs := make(chan error, 1)
	cancel, err := repo.Subscribe(ctx, "u1", func([]Line) {}, func(err error) { errs <- err })
	require.NoError(t, err)
	cancel()

	select {
	case err := <-errs:
		t.Fatalf("cancel must not report an error, got %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}
