package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/archflow/internal/service"
	"github.com/archflow/internal/store"
	"github.com/archflow/pkg/models"
)

type createConversationRequest struct {
	Platform  models.Platform `json:"platform"`
	ChannelID string          `json:"channel_id"`
	ThreadID  string          `json:"thread_id"`
}

type generateDiagramRequest struct {
	ConversationID  int64 `json:"conversation_id"`
	ForceRegenerate bool  `json:"force_regenerate"`
}

type modifyDiagramRequest struct {
	Request string `json:"request"`
	UserID  string `json:"user_id"`
}

func (s *Server) addMessage(c echo.Context) error {
	var req service.AddMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if req.ConversationID == 0 && req.Platform == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation_id or platform is required")
	}

	result, err := s.conversations.AddMessage(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}

func (s *Server) createConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Platform == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "platform is required")
	}

	conversation, err := s.conversations.CreateConversation(c.Request().Context(), req.Platform, req.ChannelID, req.ThreadID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, conversation)
}

func (s *Server) getConversation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	conversation, err := s.conversations.GetConversation(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, conversation)
}

func (s *Server) getConversationMessages(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if _, err := s.conversations.GetConversation(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	messages, err := s.conversations.RecentMessages(c.Request().Context(), id, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return c.JSON(http.StatusOK, messages)
}

func (s *Server) getConversationDiagrams(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if _, err := s.conversations.GetConversation(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	diagrams, err := s.diagrams.ListVersions(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if diagrams == nil {
		diagrams = []*models.Diagram{}
	}
	return c.JSON(http.StatusOK, diagrams)
}

func (s *Server) generateDiagram(c echo.Context) error {
	var req generateDiagramRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ConversationID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation_id is required")
	}

	diagram, err := s.diagrams.Generate(c.Request().Context(), req.ConversationID, req.ForceRegenerate)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, diagram)
}

func (s *Server) modifyDiagram(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req modifyDiagramRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Request == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request is required")
	}

	result, err := s.diagrams.Modify(c.Request().Context(), id, req.Request, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "diagram not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// A rejected modification is a successful request with success=false.
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getDiagram(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	diagram, err := s.diagrams.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "diagram not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, diagram)
}

func (s *Server) getDiagramFormat(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	format := models.DiagramFormat(c.Param("format"))

	diagram, err := s.diagrams.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "diagram not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	source, ok := diagram.Source(format)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown format")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"diagram_id": diagram.ID,
		"version":    diagram.Version,
		"format":     format,
		"source":     source,
	})
}

func (s *Server) getDiagramModifications(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if _, err := s.diagrams.Get(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "diagram not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	modifications, err := s.diagrams.ListModifications(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if modifications == nil {
		modifications = []*models.Modification{}
	}
	return c.JSON(http.StatusOK, modifications)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
