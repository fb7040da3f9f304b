package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskindex/deskindex/internal/database"
	"github.com/deskindex/deskindex/internal/models"
)

var _ Store = (*database.ActivityLogRepository)(nil)

func TestMemoryStoreListsNewestFirst(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Log(ctx, models.ActivityLog{Message: fmt.Sprint(i), ActivityType: models.ActivityTypeConnectorToggled}))
	}

	logs, err := store.List(ctx, database.ActivityFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "2", logs[0].Message)
	assert.Equal(t, "1", logs[1].Message)
	assert.NotEmpty(t, logs[0].ID)
	assert.False(t, logs[0].Timestamp.IsZero())
}

func TestMemoryStoreDropsOldest(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Log(ctx, models.ActivityLog{Message: fmt.Sprint(i)}))
	}

	logs, err := store.List(ctx, database.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "4", logs[0].Message)
	assert.Equal(t, "3", logs[1].Message)
}

func TestMemoryStoreFilters(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.Log(ctx, models.ActivityLog{ActivityType: models.ActivityTypeCredentialCreated, Source: models.DocumentSourceZendesk}))
	require.NoError(t, store.Log(ctx, models.ActivityLog{ActivityType: models.ActivityTypeCredentialDeleteBlocked, Source: models.DocumentSourceZendesk}))
	require.NoError(t, store.Log(ctx, models.ActivityLog{ActivityType: models.ActivityTypeCredentialCreated, Source: models.DocumentSourceSlack}))

	logs, err := store.List(ctx, database.ActivityFilter{
		ActivityType: models.ActivityTypeCredentialCreated,
		Source:       models.DocumentSourceZendesk,
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.DocumentSourceZendesk, logs[0].Source)
}

func TestMemoryStoreDeleteOlderThan(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	require.NoError(t, store.Log(ctx, models.ActivityLog{Message: "old", Timestamp: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, store.Log(ctx, models.ActivityLog{Message: "new"}))

	removed, err := store.DeleteOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	logs, err := store.List(ctx, database.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "new", logs[0].Message)
}
