// Package api exposes the pipeline over HTTP: message ingestion, diagram
// generation and modification, artifact retrieval, and websocket
// subscriptions.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/archflow/internal/hub"
	"github.com/archflow/internal/service"
)

// Server represents the API server
type Server struct {
	echo          *echo.Echo
	port          int
	storagePath   string
	conversations *service.ConversationService
	diagrams      *service.DiagramService
	hub           *hub.Hub
}

// NewServer creates a new API server
func NewServer(port int, storagePath string, conversations *service.ConversationService, diagrams *service.DiagramService, broadcast *hub.Hub) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:          e,
		port:          port,
		storagePath:   storagePath,
		conversations: conversations,
		diagrams:      diagrams,
		hub:           broadcast,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	v1.POST("/messages", s.addMessage)
	v1.POST("/conversations", s.createConversation)
	v1.GET("/conversations/:id", s.getConversation)
	v1.GET("/conversations/:id/messages", s.getConversationMessages)
	v1.GET("/conversations/:id/diagrams", s.getConversationDiagrams)

	v1.POST("/diagrams/generate", s.generateDiagram)
	v1.POST("/diagrams/:id/modify", s.modifyDiagram)
	v1.GET("/diagrams/:id", s.getDiagram)
	v1.GET("/diagrams/:id/:format", s.getDiagramFormat)
	v1.GET("/diagrams/:id/modifications", s.getDiagramModifications)

	s.echo.GET("/diagrams/images/:name", s.getDiagramImage)
	s.echo.GET("/ws", s.handleWebsocket)
}

// Start begins the API server and blocks until interrupted.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
