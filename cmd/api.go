package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/archflow/internal/analyzer"
	"github.com/archflow/internal/api"
	"github.com/archflow/internal/config"
	"github.com/archflow/internal/database"
	"github.com/archflow/internal/diagram"
	"github.com/archflow/internal/hub"
	"github.com/archflow/internal/jobqueue"
	"github.com/archflow/internal/logging"
	"github.com/archflow/internal/service"
	"github.com/archflow/internal/store"
	"github.com/archflow/internal/trigger"
)

// APICommand returns the CLI command for starting the API server
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the archflow API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runAPI,
	}
}

func runAPI(c *cli.Context) error {
	logging.Setup()

	configPath := ""
	if c.IsSet("config") {
		configPath = c.String("config")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	if err := os.MkdirAll(cfg.Server.StoragePath, 0o755); err != nil {
		return fmt.Errorf("failed to create storage path: %w", err)
	}

	db, err := database.NewDB(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	conversations := store.NewConversationStore(db)
	messages := store.NewMessageStore(db)
	diagrams := store.NewDiagramStore(db)
	modifications := store.NewModificationStore(db)

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	az := analyzer.New(provider)
	generator := diagram.NewGenerator(provider)

	renderTimeout := time.Duration(cfg.Render.TimeoutSeconds) * time.Second
	renderer := diagram.NewRenderer(renderTimeout, cfg.Render.MaxWidth, cfg.Render.MaxHeight)

	var dispatcher service.RenderDispatcher
	if cfg.Render.QueueEnabled {
		queue, err := jobqueue.NewJobQueue(ctx, cfg.Database.URL, diagrams, renderer, cfg.Server.StoragePath)
		if err != nil {
			return fmt.Errorf("failed to create render queue: %w", err)
		}
		if err := queue.Start(ctx); err != nil {
			return fmt.Errorf("failed to start render queue: %w", err)
		}
		defer queue.Stop(ctx)
		dispatcher = queue
	} else {
		dispatcher = service.NewInlineRenderer(diagrams, renderer, cfg.Server.StoragePath, renderTimeout)
	}

	broadcast := hub.New()

	engine := trigger.NewEngine(
		messages,
		cfg.Trigger.ConfidenceThreshold,
		time.Duration(cfg.Trigger.WindowMinutes)*time.Minute,
		cfg.Trigger.MinMessages,
		time.Duration(cfg.Trigger.DebounceSeconds)*time.Second,
	)

	diagramService := service.NewDiagramService(
		conversations, messages, diagrams, modifications,
		az, generator, dispatcher, broadcast,
		time.Duration(cfg.Trigger.WindowMinutes)*time.Minute,
	)
	conversationService := service.NewConversationService(
		conversations, messages, az, engine, diagramService, broadcast,
	)

	fmt.Printf("Starting archflow API server on port %d...\n", port)
	server := api.NewServer(port, cfg.Server.StoragePath, conversationService, diagramService, broadcast)
	return server.Start()
}
