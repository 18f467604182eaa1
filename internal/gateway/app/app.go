package app

import (
	"context"
	"fmt"
	"log"

	"consultify/internal/engine/archive"
	"consultify/internal/engine/catalog"
	"consultify/internal/gateway/config"
	"consultify/internal/gateway/handler"
	"consultify/internal/gateway/middleware"
	"consultify/internal/gateway/repository/archivestore"
	"consultify/internal/gateway/repository/sessionstore"
	"consultify/internal/gateway/server"
	"consultify/internal/gateway/service/export"
	"consultify/internal/gateway/service/wizard"
	"consultify/internal/llm"
)

type App struct {
	server *server.Server
	wizard *wizard.Service

	cancelRun context.CancelFunc
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load agent catalog: %w", err)
	}

	// Dependencies
	sessionStore := sessionstore.NewFromEnv(cfg.Sessions.Path)
	sessionStore.EnsureLoaded()

	var uploads archivestore.Store
	if cfg.Archive.Enabled {
		s3, err := archivestore.NewS3Store(archivestore.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init archive store: %w", err)
		}
		uploads = s3
	}

	var wizardOpts []wizard.Option
	if cfg.LLM.Enabled {
		gen, err := llm.NewGeminiClient(context.Background(), cfg.LLM.Model)
		if err != nil {
			log.Printf("llm disabled, falling back to templates: %v", err)
		} else {
			wizardOpts = append(wizardOpts, wizard.WithGenerator(gen))
		}
	}

	asm, err := archive.NewAssembler(cat.Sequence())
	if err != nil {
		return nil, fmt.Errorf("failed to load archive templates: %w", err)
	}

	wizardSvc := wizard.New(cat, sessionStore, wizardOpts...)
	exportSvc := export.New(asm, wizardSvc, uploads)

	// Routing & Server
	h := handler.New(wizardSvc, exportSvc)
	srv := server.New(cfg.Port, middleware.CORS(h.Routes()))

	return &App{
		server: srv,
		wizard: wizardSvc,
	}, nil
}

// Start launches the simulator loop and blocks serving HTTP.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelRun = cancel
	go a.wizard.Run(ctx)
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	if a.cancelRun != nil {
		a.cancelRun()
	}
	return a.server.Shutdown(ctx)
}
