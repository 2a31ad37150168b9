package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/aura/backend/internal/config"
	"github.com/zhouzirui/aura/backend/internal/handler"
	"github.com/zhouzirui/aura/backend/internal/model/persona"
	"github.com/zhouzirui/aura/backend/internal/service/ai"
	"github.com/zhouzirui/aura/backend/internal/service/chat"
	"github.com/zhouzirui/aura/backend/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logCloser, err := telemetry.InitLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize log file: %v", err)
	}
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Printf("warning: telemetry shutdown: %v", err)
		}
	}()

	personaStore := persona.NewMemoryStore(persona.Seed())
	assistant, ok := personaStore.FindByID(persona.DefaultID)
	if !ok {
		log.Fatalf("assistant persona %q is not seeded", persona.DefaultID)
	}

	// Without a usable model every exchange fails, which the conversation reports to the user.
	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Printf("warning: failed to initialize %s chat model: %v", cfg.AI.Provider, err)
		log.Println("continuing without AI functionality - check API_KEY and AI_MODEL")
		chatModel = ai.Unavailable(err)
	} else {
		log.Printf("AI provider %s initialized with model %s", cfg.AI.Provider, cfg.AI.Model)
	}

	client, err := ai.NewClient(ctx, chatModel, ai.SystemInstruction(&assistant))
	if err != nil {
		log.Fatalf("failed to initialize exchange client: %v", err)
	}

	chatService := chat.NewService(client, chat.WithEventBuffer(cfg.Chat.EventBuffer))

	router := handler.NewRouter(personaStore, chatService)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Aura backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
