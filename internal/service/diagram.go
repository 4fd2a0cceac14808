package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/archflow/internal/analyzer"
	"github.com/archflow/internal/diagram"
	"github.com/archflow/internal/hub"
	"github.com/archflow/internal/store"
	"github.com/archflow/pkg/models"
)

// DiagramService generates, versions, and modifies diagrams.
type DiagramService struct {
	conversations *store.ConversationStore
	messages      *store.MessageStore
	diagrams      *store.DiagramStore
	modifications *store.ModificationStore
	analyzer      *analyzer.Analyzer
	generator     *diagram.Generator
	renderer      RenderDispatcher
	hub           *hub.Hub
	window        time.Duration
}

// NewDiagramService wires the generation pipeline.
func NewDiagramService(
	conversations *store.ConversationStore,
	messages *store.MessageStore,
	diagrams *store.DiagramStore,
	modifications *store.ModificationStore,
	az *analyzer.Analyzer,
	generator *diagram.Generator,
	renderer RenderDispatcher,
	broadcast *hub.Hub,
	window time.Duration,
) *DiagramService {
	return &DiagramService{
		conversations: conversations,
		messages:      messages,
		diagrams:      diagrams,
		modifications: modifications,
		analyzer:      az,
		generator:     generator,
		renderer:      renderer,
		hub:           broadcast,
		window:        window,
	}
}

// Generate produces a new diagram version for the conversation from its
// recent technical messages. Without force, an existing latest version is
// returned as-is. The version row is committed before rendering is
// dispatched; rendering never gates the result.
func (s *DiagramService) Generate(ctx context.Context, conversationID int64, force bool) (*models.Diagram, error) {
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return nil, fmt.Errorf("resolve conversation %d: %w", conversationID, err)
	}

	if !force {
		latest, err := s.diagrams.Latest(ctx, conversationID)
		if err == nil {
			return latest, nil
		}
		if err != store.ErrNotFound {
			return nil, fmt.Errorf("load latest diagram: %w", err)
		}
	}

	s.hub.Broadcast(hub.Event{Type: hub.EventGenerationStarted, ConversationID: conversationID})

	technical, err := s.messages.TechnicalSince(ctx, conversationID, time.Now().Add(-s.window))
	if err != nil {
		s.broadcastFailure(conversationID, err)
		return nil, fmt.Errorf("load technical messages: %w", err)
	}

	chat := make([]models.ChatMessage, 0, len(technical))
	for _, msg := range technical {
		chat = append(chat, models.ChatMessage{Content: msg.Content, Author: msg.Author()})
	}

	extraction := s.analyzer.ExtractArchitecture(ctx, chat)

	d := &models.Diagram{
		ConversationID:     conversationID,
		PlantUMLCode:       s.generator.GeneratePlantUML(ctx, extraction),
		DrawioXML:          s.generator.GenerateDrawio(ctx, extraction),
		ComponentsCount:    len(extraction.Components),
		RelationshipsCount: len(extraction.Relationships),
	}
	if err := s.diagrams.InsertVersion(ctx, d); err != nil {
		s.broadcastFailure(conversationID, err)
		return nil, fmt.Errorf("insert diagram version: %w", err)
	}

	log.Info().
		Int64("diagram_id", d.ID).
		Int64("conversation_id", conversationID).
		Int("version", d.Version).
		Int("components", d.ComponentsCount).
		Msg("diagram generated")

	s.renderer.Dispatch(ctx, d.ID, models.FormatPlantUML)

	s.hub.Broadcast(hub.Event{
		Type:           hub.EventGenerationSucceeded,
		ConversationID: conversationID,
		Data:           d,
	})
	return d, nil
}

// Modify applies a natural-language edit to a diagram. Both formats are
// modified independently; a format whose edit fails carries its previous
// source into the new version. Only when both formats fail is no version
// created. Every attempt leaves an audit Modification row. Unknown diagram
// IDs surface as store.ErrNotFound.
func (s *DiagramService) Modify(ctx context.Context, diagramID int64, request, userID string) (*models.ModificationResult, error) {
	original, err := s.diagrams.GetByID(ctx, diagramID)
	if err != nil {
		return nil, fmt.Errorf("resolve diagram %d: %w", diagramID, err)
	}

	plantuml := s.generator.ModifyPlantUML(ctx, original.PlantUMLCode, request)
	drawio := s.generator.ModifyDrawio(ctx, original.DrawioXML, request)

	if !plantuml.Success && !drawio.Success {
		errMsg := "Failed to modify diagram"
		s.recordModification(ctx, diagramID, request, userID, false, &errMsg)
		return &models.ModificationResult{Success: false, ErrorMessage: errMsg}, nil
	}

	// Counts are carried forward: the edit is free-form and the new sources
	// are not re-extracted.
	next := &models.Diagram{
		ConversationID:     original.ConversationID,
		PlantUMLCode:       plantuml.Source,
		DrawioXML:          drawio.Source,
		ComponentsCount:    original.ComponentsCount,
		RelationshipsCount: original.RelationshipsCount,
	}
	if err := s.diagrams.InsertVersion(ctx, next); err != nil {
		errMsg := err.Error()
		s.recordModification(ctx, diagramID, request, userID, false, &errMsg)
		return nil, fmt.Errorf("insert modified version: %w", err)
	}

	s.recordModification(ctx, next.ID, request, userID, true, nil)

	log.Info().
		Int64("diagram_id", next.ID).
		Int("version", next.Version).
		Bool("plantuml_modified", plantuml.Success).
		Bool("drawio_modified", drawio.Success).
		Msg("diagram modified")

	s.renderer.Dispatch(ctx, next.ID, models.FormatPlantUML)

	s.hub.Broadcast(hub.Event{
		Type:           hub.EventDiagramModified,
		ConversationID: next.ConversationID,
		Data:           next,
	})
	return &models.ModificationResult{Success: true, Diagram: next}, nil
}

// Get returns a diagram version by ID.
func (s *DiagramService) Get(ctx context.Context, diagramID int64) (*models.Diagram, error) {
	return s.diagrams.GetByID(ctx, diagramID)
}

// Latest returns the newest version for a conversation.
func (s *DiagramService) Latest(ctx context.Context, conversationID int64) (*models.Diagram, error) {
	return s.diagrams.Latest(ctx, conversationID)
}

// ListVersions returns all versions for a conversation, newest first.
func (s *DiagramService) ListVersions(ctx context.Context, conversationID int64) ([]*models.Diagram, error) {
	return s.diagrams.ListForConversation(ctx, conversationID)
}

// ListModifications returns the audit trail for a diagram version.
func (s *DiagramService) ListModifications(ctx context.Context, diagramID int64) ([]*models.Modification, error) {
	return s.modifications.ListForDiagram(ctx, diagramID)
}

func (s *DiagramService) recordModification(ctx context.Context, diagramID int64, request, userID string, success bool, errMsg *string) {
	mod := &models.Modification{
		DiagramID:    diagramID,
		Request:      request,
		Success:      success,
		ErrorMessage: errMsg,
	}
	if userID != "" {
		mod.UserID = &userID
	}
	if err := s.modifications.Insert(ctx, mod); err != nil {
		log.Warn().Err(err).Int64("diagram_id", diagramID).Msg("failed to record modification audit row")
	}
}

func (s *DiagramService) broadcastFailure(conversationID int64, err error) {
	s.hub.Broadcast(hub.Event{
		Type:           hub.EventGenerationFailed,
		ConversationID: conversationID,
		Data:           map[string]string{"error": err.Error()},
	})
}
