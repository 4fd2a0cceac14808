package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archflow/internal/database"
	"github.com/archflow/pkg/models"
)

// testDB connects to the database named by DATABASE_URL and applies the
// schema. Integration tests are skipped in short mode and when no database
// is configured.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping database test")
	}

	db, err := database.NewDB(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func uniqueChannel(t *testing.T) string {
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestConversationStore_GetOrCreateIsAtomic(t *testing.T) {
	db := testDB(t)
	conversations := NewConversationStore(db)
	ctx := context.Background()
	channel := uniqueChannel(t)

	first, err := conversations.GetOrCreate(ctx, models.PlatformWeb, channel, "t1")
	require.NoError(t, err)
	t.Cleanup(func() { conversations.Delete(ctx, first.ID) })

	// Concurrent get-or-create by the same natural key must converge on one row.
	const callers = 8
	ids := make([]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := conversations.GetOrCreate(ctx, models.PlatformWeb, channel, "t1")
			if err == nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for i, id := range ids {
		assert.Equal(t, first.ID, id, "caller %d", i)
	}
}

func TestConversationStore_GetByIDNotFound(t *testing.T) {
	db := testDB(t)
	conversations := NewConversationStore(db)

	_, err := conversations.GetByID(context.Background(), -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageStore_CountHighConfidenceSince(t *testing.T) {
	db := testDB(t)
	conversations := NewConversationStore(db)
	messages := NewMessageStore(db)
	ctx := context.Background()

	conv, err := conversations.GetOrCreate(ctx, models.PlatformWeb, uniqueChannel(t), "")
	require.NoError(t, err)
	t.Cleanup(func() { conversations.Delete(ctx, conv.ID) })

	for _, confidence := range []float64{0.9, 0.8, 0.75, 0.5} {
		msg := &models.Message{
			ConversationID:  conv.ID,
			Content:         "we should shard the database",
			UserID:          "u1",
			IsTechnical:     confidence >= 0.7,
			ConfidenceScore: confidence,
			Entities:        []string{"database"},
		}
		require.NoError(t, messages.Insert(ctx, msg))
	}

	count, err := messages.CountHighConfidenceSince(ctx, conv.ID, time.Now().Add(-time.Hour), 0.7)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDiagramStore_VersionsAreMonotonic(t *testing.T) {
	db := testDB(t)
	conversations := NewConversationStore(db)
	diagrams := NewDiagramStore(db)
	ctx := context.Background()

	conv, err := conversations.GetOrCreate(ctx, models.PlatformWeb, uniqueChannel(t), "")
	require.NoError(t, err)
	t.Cleanup(func() { conversations.Delete(ctx, conv.ID) })

	const versions = 5
	var wg sync.WaitGroup
	for i := 0; i < versions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := &models.Diagram{
				ConversationID: conv.ID,
				PlantUMLCode:   "@startuml\n@enduml",
				DrawioXML:      "<mxfile/>",
			}
			assert.NoError(t, diagrams.InsertVersion(ctx, d))
		}()
	}
	wg.Wait()

	all, err := diagrams.ListForConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, all, versions)

	seen := make(map[int]bool)
	for _, d := range all {
		seen[d.Version] = true
	}
	for v := 1; v <= versions; v++ {
		assert.True(t, seen[v], "version %d missing", v)
	}

	latest, err := diagrams.Latest(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, versions, latest.Version)
}

func TestModificationStore_AuditTrail(t *testing.T) {
	db := testDB(t)
	conversations := NewConversationStore(db)
	diagrams := NewDiagramStore(db)
	modifications := NewModificationStore(db)
	ctx := context.Background()

	conv, err := conversations.GetOrCreate(ctx, models.PlatformWeb, uniqueChannel(t), "")
	require.NoError(t, err)
	t.Cleanup(func() { conversations.Delete(ctx, conv.ID) })

	d := &models.Diagram{ConversationID: conv.ID, PlantUMLCode: "@startuml\n@enduml", DrawioXML: "<mxfile/>"}
	require.NoError(t, diagrams.InsertVersion(ctx, d))

	errMsg := "Failed to modify diagram"
	require.NoError(t, modifications.Insert(ctx, &models.Modification{
		DiagramID:    d.ID,
		Request:      "add a cache",
		Success:      false,
		ErrorMessage: &errMsg,
	}))
	require.NoError(t, modifications.Insert(ctx, &models.Modification{
		DiagramID: d.ID,
		Request:   "add a queue",
		Success:   true,
	}))

	trail, err := modifications.ListForDiagram(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.False(t, trail[0].Success)
	assert.True(t, trail[1].Success)
}
