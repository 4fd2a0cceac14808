package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archflow/internal/ai"
	"github.com/archflow/internal/analyzer"
	"github.com/archflow/internal/database"
	"github.com/archflow/internal/diagram"
	"github.com/archflow/internal/hub"
	"github.com/archflow/internal/store"
	"github.com/archflow/pkg/models"
)

type stubProvider struct {
	response string
	err      error
}

func (p *stubProvider) Invoke(_ context.Context, _ []ai.PromptMessage) (string, error) {
	return p.response, p.err
}

func (p *stubProvider) Configure(_ map[string]interface{}) error { return nil }

func (p *stubProvider) Name() string { return "stub" }

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, int64, models.DiagramFormat) {}

type pipelineFixture struct {
	conversations *store.ConversationStore
	messages      *store.MessageStore
	diagrams      *DiagramService
	conversation  *models.Conversation
}

func newPipelineFixture(t *testing.T, provider ai.Provider) *pipelineFixture {
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

	conversations := store.NewConversationStore(db)
	messages := store.NewMessageStore(db)
	diagrams := store.NewDiagramStore(db)
	modifications := store.NewModificationStore(db)

	svc := NewDiagramService(
		conversations, messages, diagrams, modifications,
		analyzer.New(provider), diagram.NewGenerator(provider),
		noopDispatcher{}, hub.New(), 10*time.Minute,
	)

	channel := fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
	conv, err := conversations.GetOrCreate(context.Background(), models.PlatformWeb, channel, "")
	require.NoError(t, err)
	t.Cleanup(func() { conversations.Delete(context.Background(), conv.ID) })

	return &pipelineFixture{
		conversations: conversations,
		messages:      messages,
		diagrams:      svc,
		conversation:  conv,
	}
}

func TestGenerate_ProviderFailureStillProducesVersion(t *testing.T) {
	f := newPipelineFixture(t, &stubProvider{err: errors.New("invalid api key")})
	ctx := context.Background()

	d, err := f.diagrams.Generate(ctx, f.conversation.ID, true)
	require.NoError(t, err)

	assert.Equal(t, 1, d.Version)
	assert.True(t, diagram.ValidatePlantUML(d.PlantUMLCode))
	assert.True(t, diagram.ValidateDrawioXML(d.DrawioXML))
	assert.Zero(t, d.ComponentsCount)
}

func TestGenerate_WithoutForceReturnsLatest(t *testing.T) {
	f := newPipelineFixture(t, &stubProvider{err: errors.New("invalid api key")})
	ctx := context.Background()

	first, err := f.diagrams.Generate(ctx, f.conversation.ID, true)
	require.NoError(t, err)

	again, err := f.diagrams.Generate(ctx, f.conversation.ID, false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	forced, err := f.diagrams.Generate(ctx, f.conversation.ID, true)
	require.NoError(t, err)
	assert.Equal(t, first.Version+1, forced.Version)
}

func TestGenerate_UnknownConversation(t *testing.T) {
	f := newPipelineFixture(t, &stubProvider{err: errors.New("invalid api key")})

	_, err := f.diagrams.Generate(context.Background(), -1, true)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestModify_PartialFailureCarriesSourceForward(t *testing.T) {
	// Valid PlantUML but not XML: the Draw.io edit is rejected while the
	// PlantUML edit lands.
	provider := &stubProvider{response: "@startuml\ncomponent \"Cache\" as Cache\n@enduml"}
	f := newPipelineFixture(t, provider)
	ctx := context.Background()

	original, err := f.diagrams.Generate(ctx, f.conversation.ID, true)
	require.NoError(t, err)

	result, err := f.diagrams.Modify(ctx, original.ID, "add a cache", "u1")
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.Equal(t, original.Version+1, result.Diagram.Version)
	assert.Contains(t, result.Diagram.PlantUMLCode, "Cache")
	assert.Equal(t, original.DrawioXML, result.Diagram.DrawioXML, "failed format keeps its previous source")
	assert.Equal(t, original.ComponentsCount, result.Diagram.ComponentsCount)
	assert.Equal(t, original.RelationshipsCount, result.Diagram.RelationshipsCount)
}

func TestModify_BothFailuresCreateNoVersion(t *testing.T) {
	f := newPipelineFixture(t, &stubProvider{err: errors.New("invalid api key")})
	ctx := context.Background()

	original, err := f.diagrams.Generate(ctx, f.conversation.ID, true)
	require.NoError(t, err)

	result, err := f.diagrams.Modify(ctx, original.ID, "add a cache", "u1")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Nil(t, result.Diagram)
	assert.NotEmpty(t, result.ErrorMessage)

	latest, err := f.diagrams.Latest(ctx, f.conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, original.Version, latest.Version)

	trail, err := f.diagrams.ListModifications(ctx, original.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.False(t, trail[0].Success)
}

func TestModify_UnknownDiagram(t *testing.T) {
	f := newPipelineFixture(t, &stubProvider{err: errors.New("invalid api key")})

	_, err := f.diagrams.Modify(context.Background(), -1, "add a cache", "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
