package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/archflow/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebsocket(c echo.Context) error {
	conversationID, err := strconv.ParseInt(c.QueryParam("conversation_id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation_id is required")
	}

	if _, err := s.conversations.GetConversation(c.Request().Context(), conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	s.hub.Subscribe(conversationID, conn)
	return nil
}
