package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"snapfix/internal/api"
	"snapfix/internal/classify"
	"snapfix/internal/config"
	"snapfix/internal/digest"
	"snapfix/internal/httpx"
	"snapfix/internal/integrations/llm"
	"snapfix/internal/integrations/modelserver"
	slackbot "snapfix/internal/integrations/slack"
	"snapfix/internal/integrations/telegram"
	"snapfix/internal/lifecycle"
	"snapfix/internal/notify"
	"snapfix/internal/routing"
	"snapfix/internal/storage/sqlite"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
)

const shutdownTimeout = 15 * time.Second

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Listen=%s Labels=%d Departments=%d TextClassifier=%s ImageClassifier=%t Notifier=%s Timezone=%s Digest=%t ExternalHTTPTimeout=%s",
		cfg.ListenAddr,
		cfg.Registry.Len(),
		len(cfg.Departments),
		cfg.TextClassifier,
		cfg.ImageClassifierURL != "",
		cfg.Notifier,
		cfg.Timezone,
		cfg.DigestEnabled(),
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()
	store := sqlite.NewStore(db)

	var slackAPI *slack.Client
	if cfg.SlackBotToken != "" {
		slackAPI = slack.New(cfg.SlackBotToken)
	}

	deliverer := notify.NewDeliverer(store, newDispatcher(cfg, slackAPI), cfg.NotifyTimeout())
	manager := lifecycle.NewManager(store, routing.New(cfg.Departments), deliverer)
	classifier := classify.NewService(newImageClassifier(cfg), newTextClassifier(cfg), cfg.Registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := digest.Start(ctx, "outbox-sweep", cfg.OutboxSweepSchedule, cfg.Location, digest.SweepJob(deliverer)); err != nil {
		log.Fatalf("Failed to start outbox sweeper: %v", err)
	}
	if cfg.DigestEnabled() {
		job := digest.DigestJob(store, slackbot.NewPoster(slackAPI), cfg.DigestChannelID, cfg.DigestSkipEmpty)
		if err := digest.Start(ctx, "digest", cfg.DigestSchedule, cfg.Location, job); err != nil {
			log.Fatalf("Failed to start digest scheduler: %v", err)
		}
	}

	gin.SetMode(cfg.GinMode)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(api.NewHandlers(classifier, manager)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting SnapFix server on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	deliverer.Wait()
	log.Println("Shutdown complete")
}

func newDispatcher(cfg config.Config, slackAPI *slack.Client) notify.Dispatcher {
	switch cfg.Notifier {
	case "telegram":
		return telegram.NewDispatcher(cfg.TelegramBotToken)
	case "slack":
		return slackbot.NewPoster(slackAPI)
	default:
		return notify.LogDispatcher{}
	}
}

// newImageClassifier returns nil when no image model is deployed, so photos
// are treated as absent input.
func newImageClassifier(cfg config.Config) classify.ImageClassifier {
	if cfg.ImageClassifierURL == "" {
		return nil
	}
	return modelserver.New(cfg.ImageClassifierURL)
}

func newTextClassifier(cfg config.Config) classify.TextClassifier {
	switch cfg.TextClassifier {
	case "anthropic":
		return llm.NewAnthropicClassifier(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.Registry)
	case "openai":
		return llm.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.Registry)
	case "glossary":
		g, err := llm.LoadGlossary(cfg.GlossaryPath)
		if err != nil {
			log.Fatalf("Failed to load glossary: %v", err)
		}
		gc, err := llm.NewGlossaryClassifier(g, cfg.Registry)
		if err != nil {
			log.Fatalf("Invalid glossary: %v", err)
		}
		return gc
	default:
		return modelserver.New(cfg.TextClassifierURL)
	}
}
