// Package main implements the VoiceCart index worker. It builds the
// knowledge-base index at startup, then listens on NATS for explicit reindex
// commands: the collection is dropped, rebuilt from the source file, and a
// completion event published with the new chunk count.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/voicecart/voicecart/engine/index"
	"github.com/voicecart/voicecart/engine/semantic"
	"github.com/voicecart/voicecart/pkg/natsutil"
	"github.com/voicecart/voicecart/pkg/ollama"
)

const (
	// ReindexSubject carries operator reindex commands.
	ReindexSubject = "voicecart.kb.reindex"
	// RebuiltSubject carries rebuild completion events.
	RebuiltSubject = "voicecart.kb.rebuilt"
)

// ReindexCommand asks the worker to drop and rebuild the index.
type ReindexCommand struct {
	Reason string `json:"reason,omitempty"`
}

// RebuiltEvent reports a completed rebuild.
type RebuiltEvent struct {
	Chunks     int       `json:"chunks"`
	FinishedAt time.Time `json:"finished_at"`
}

// Config holds all environment-based configuration.
type Config struct {
	KBPath      string
	OllamaURL   string
	EmbedModel  string
	EmbedDims   int
	EmbedMaxRPS float64
	QdrantURL   string
	Collection  string
	NATSURL     string
}

func loadConfig() Config {
	dims, _ := strconv.Atoi(envOr("EMBED_DIMS", "768"))
	rps, _ := strconv.ParseFloat(envOr("EMBED_MAX_RPS", "4"), 64)
	return Config{
		KBPath:      envOr("KB_PATH", "ecommerce_voicebot_knowledge_base.json"),
		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:  envOr("EMBED_MODEL", "nomic-embed-text"),
		EmbedDims:   dims,
		EmbedMaxRPS: rps,
		QdrantURL:   envOr("QDRANT_URL", "localhost:6334"),
		Collection:  envOr("QDRANT_COLLECTION", "voicecart_kb"),
		NATSURL:     envOr("NATS_URL", nats.DefaultURL),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("indexer exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	embed := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel, cfg.EmbedMaxRPS)
	builder := index.New(cfg.KBPath, embed, store, logger)

	if err := builder.EnsureBuilt(ctx); err != nil {
		return fmt.Errorf("index build: %w", err)
	}

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	sub, err := natsutil.Subscribe(nc, ReindexSubject, func(msgCtx context.Context, cmd ReindexCommand) {
		logger.Info("reindex requested", "reason", cmd.Reason)
		count, err := reindex(msgCtx, store, builder, cfg.EmbedDims)
		if err != nil {
			logger.Error("reindex failed", "err", err)
			return
		}
		evt := RebuiltEvent{Chunks: count, FinishedAt: time.Now().UTC()}
		if err := natsutil.Publish(msgCtx, nc, RebuiltSubject, evt); err != nil {
			logger.Error("rebuilt event publish failed", "err", err)
		}
		logger.Info("reindex complete", "chunks", count)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", ReindexSubject, err)
	}
	defer sub.Unsubscribe()

	logger.Info("indexer ready", "subject", ReindexSubject)
	<-ctx.Done()
	return nil
}

// reindex is the only path that clears the store: drop the collection,
// recreate it, and run the build again from the source file.
func reindex(ctx context.Context, store *semantic.VectorStore, builder *index.Builder, dims int) (int, error) {
	if err := store.DeleteCollection(ctx); err != nil {
		return 0, err
	}
	if err := store.EnsureCollection(ctx, dims); err != nil {
		return 0, err
	}
	if err := builder.Rebuild(ctx); err != nil {
		return 0, err
	}
	return store.Count(ctx)
}
