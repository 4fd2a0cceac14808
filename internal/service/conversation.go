package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/archflow/internal/analyzer"
	"github.com/archflow/internal/hub"
	"github.com/archflow/internal/store"
	"github.com/archflow/internal/trigger"
	"github.com/archflow/pkg/models"
)

// contextMessageLimit bounds how many prior messages feed classification.
const contextMessageLimit = 10

// generationTimeout bounds one background diagram generation run end to end.
const generationTimeout = 5 * time.Minute

// ConversationService handles message ingestion: conversation resolution,
// classification, persistence, event broadcast, and trigger evaluation.
type ConversationService struct {
	conversations *store.ConversationStore
	messages      *store.MessageStore
	analyzer      *analyzer.Analyzer
	trigger       *trigger.Engine
	diagrams      *DiagramService
	hub           *hub.Hub
}

// NewConversationService wires the ingestion pipeline.
func NewConversationService(
	conversations *store.ConversationStore,
	messages *store.MessageStore,
	az *analyzer.Analyzer,
	tr *trigger.Engine,
	diagrams *DiagramService,
	broadcast *hub.Hub,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		analyzer:      az,
		trigger:       tr,
		diagrams:      diagrams,
		hub:           broadcast,
	}
}

// CreateConversation explicitly creates (or returns) the conversation for a
// natural key.
func (s *ConversationService) CreateConversation(ctx context.Context, platform models.Platform, channelID, threadID string) (*models.Conversation, error) {
	return s.conversations.GetOrCreate(ctx, platform, channelID, threadID)
}

// GetConversation returns a conversation by ID.
func (s *ConversationService) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	return s.conversations.GetByID(ctx, id)
}

// RecentMessages returns the newest messages for a conversation.
func (s *ConversationService) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]*models.Message, error) {
	return s.messages.Recent(ctx, conversationID, limit)
}

// AddMessage ingests one chat message. The message is classified fail-closed,
// persisted with its classification, and broadcast; then the generation
// trigger is re-evaluated and, when it fires past the debounce gate,
// background generation starts. Submission succeeds even when classification
// is degraded; only persistence failures surface as errors.
func (s *ConversationService) AddMessage(ctx context.Context, req AddMessageRequest) (*models.MessageResult, error) {
	conversation, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	recent, err := s.messages.Recent(ctx, conversation.ID, contextMessageLimit)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load classification context")
		recent = nil
	}
	recentContent := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- { // oldest first
		recentContent = append(recentContent, recent[i].Content)
	}

	analysis := s.analyzer.AnalyzeMessage(ctx, req.Content, recentContent)

	message := &models.Message{
		ConversationID:  conversation.ID,
		Content:         req.Content,
		UserID:          req.UserID,
		IsTechnical:     analysis.IsTechnical,
		ConfidenceScore: analysis.ConfidenceScore,
		Entities:        analysis.Entities,
	}
	if req.UserName != "" {
		message.UserName = &req.UserName
	}
	if err := s.messages.Insert(ctx, message); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := s.conversations.Touch(ctx, conversation.ID); err != nil {
		log.Warn().Err(err).Msg("failed to touch conversation")
	}

	log.Info().
		Int64("conversation_id", conversation.ID).
		Bool("is_technical", analysis.IsTechnical).
		Float64("confidence", analysis.ConfidenceScore).
		Msg("message added")

	s.hub.Broadcast(hub.Event{
		Type:           hub.EventMessageCreated,
		ConversationID: conversation.ID,
		Data:           message,
	})

	s.maybeGenerate(ctx, conversation.ID)

	return &models.MessageResult{
		Message:         message,
		IsTechnical:     analysis.IsTechnical,
		ConfidenceScore: analysis.ConfidenceScore,
		Entities:        analysis.Entities,
	}, nil
}

func (s *ConversationService) resolveConversation(ctx context.Context, req AddMessageRequest) (*models.Conversation, error) {
	if req.ConversationID != 0 {
		conversation, err := s.conversations.GetByID(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("resolve conversation %d: %w", req.ConversationID, err)
		}
		return conversation, nil
	}
	conversation, err := s.conversations.GetOrCreate(ctx, req.Platform, req.ChannelID, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}
	return conversation, nil
}

// maybeGenerate evaluates the trigger and kicks off background generation
// when it fires and the debounce gate is free. Trigger failures are logged,
// never surfaced: ingestion already succeeded.
func (s *ConversationService) maybeGenerate(ctx context.Context, conversationID int64) {
	fire, err := s.trigger.ShouldGenerate(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Msg("trigger evaluation failed")
		return
	}
	if !fire || !s.trigger.TryAcquire(conversationID) {
		return
	}

	log.Info().Int64("conversation_id", conversationID).Msg("generation trigger fired")
	go func() {
		genCtx, cancel := context.WithTimeout(context.Background(), generationTimeout)
		defer cancel()
		if _, err := s.diagrams.Generate(genCtx, conversationID, true); err != nil {
			log.Error().Err(err).Int64("conversation_id", conversationID).Msg("triggered generation failed")
			s.trigger.Release(conversationID)
		}
	}()
}
