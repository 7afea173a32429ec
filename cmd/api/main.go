// Package main implements the VoiceCart retrieval API server. It builds the
// knowledge-base index at startup, then serves the relevance gate and top-k
// retrieval to the voice conversation loop.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/voicecart/voicecart/engine/index"
	"github.com/voicecart/voicecart/engine/rag"
	"github.com/voicecart/voicecart/engine/semantic"
	"github.com/voicecart/voicecart/pkg/metrics"
	"github.com/voicecart/voicecart/pkg/mid"
	"github.com/voicecart/voicecart/pkg/ollama"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	KBPath      string
	OllamaURL   string
	EmbedModel  string
	EmbedDims   int
	EmbedMaxRPS float64
	QdrantURL   string
	Collection  string
	CORSOrigin  string
}

func loadConfig() Config {
	dims, _ := strconv.Atoi(envOr("EMBED_DIMS", "768"))
	rps, _ := strconv.ParseFloat(envOr("EMBED_MAX_RPS", "0"), 64)
	return Config{
		Port:        envOr("PORT", "8080"),
		KBPath:      envOr("KB_PATH", "ecommerce_voicebot_knowledge_base.json"),
		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:  envOr("EMBED_MODEL", "nomic-embed-text"),
		EmbedDims:   dims,
		EmbedMaxRPS: rps,
		QdrantURL:   envOr("QDRANT_URL", "localhost:6334"),
		Collection:  envOr("QDRANT_COLLECTION", "voicecart_kb"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var met = metrics.New()

var (
	mGateRelevant   = met.Counter("voicecart_gate_relevant_total", "Queries the gate deemed relevant")
	mGateIrrelevant = met.Counter("voicecart_gate_irrelevant_total", "Queries the gate deemed irrelevant")
	mRetrievals     = met.Counter("voicecart_retrievals_total", "Retrieval requests served")
	mRetrieveDur    = met.Histogram("voicecart_retrieve_duration_seconds", "Retrieval latency", nil)
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Qdrant ---
	store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	// --- Embedding encoder ---
	embed := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel, cfg.EmbedMaxRPS)

	// --- Build index before serving any query ---
	builder := index.New(cfg.KBPath, embed, store, logger)
	if err := builder.EnsureBuilt(ctx); err != nil {
		return fmt.Errorf("index build: %w", err)
	}

	// --- Retrieval service ---
	ragSvc := rag.New(embed, store, rag.DefaultOptions(), logger)

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/relevance", handleRelevance(ragSvc))
	mux.HandleFunc("POST /api/retrieve", handleRetrieve(ragSvc, logger))
	mux.HandleFunc("POST /api/context", handleContext(ragSvc, logger))
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("voicecart-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// QueryRequest is the JSON body for the relevance and retrieve endpoints.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return req, false
	}
	if req.Query == "" {
		http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func handleRelevance(svc *rag.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQuery(w, r)
		if !ok {
			return
		}

		relevant := svc.IsRelevant(r.Context(), req.Query)
		if relevant {
			mGateRelevant.Inc()
		} else {
			mGateIrrelevant.Inc()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"relevant": relevant})
	}
}

func handleRetrieve(svc *rag.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQuery(w, r)
		if !ok {
			return
		}

		start := time.Now()
		texts, err := svc.Retrieve(r.Context(), req.Query, req.TopK)
		mRetrieveDur.Since(start)
		if err != nil {
			// Context unavailable is a degraded answer, not a failure.
			logger.Warn("retrieve failed, returning no context", "err", err)
			texts = nil
		}
		mRetrievals.Inc()

		if texts == nil {
			texts = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]string{"results": texts})
	}
}

// ContextResponse carries a ready-to-inject grounding block for thin
// conversation-loop clients.
type ContextResponse struct {
	Relevant    bool     `json:"relevant"`
	Instruction string   `json:"instruction"`
	Context     string   `json:"context,omitempty"`
	Sections    []string `json:"sections"`
}

const groundedInstruction = "The user is asking about products or shopping-related " +
	"information. Use the following product catalog and documentation context to " +
	"provide accurate, helpful answers about products, features, prices, " +
	"availability, or shopping-related information."

const generalInstruction = "The user's question is about general shopping, " +
	"e-commerce, or customer service topics. Use your knowledge of e-commerce " +
	"best practices, shopping assistance, order management, shipping, returns, " +
	"and customer service to provide helpful, conversational answers."

func handleContext(svc *rag.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQuery(w, r)
		if !ok {
			return
		}

		resp := ContextResponse{Instruction: generalInstruction, Sections: []string{}}

		if svc.IsRelevant(r.Context(), req.Query) {
			texts, err := svc.Retrieve(r.Context(), req.Query, req.TopK)
			if err != nil {
				logger.Warn("context retrieve failed, falling back to general", "err", err)
			} else if len(texts) > 0 {
				resp.Relevant = true
				resp.Instruction = groundedInstruction
				resp.Context = buildContextBlock(texts)
				resp.Sections = texts
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// buildContextBlock formats retrieved chunks into the labeled grounding
// block the conversation loop injects before generating a reply.
func buildContextBlock(texts []string) string {
	var b strings.Builder
	b.WriteString("\n\n--- Product Catalog & Information ---\n\n")
	for i, text := range texts {
		fmt.Fprintf(&b, "[Product Information Section %d]\n%s\n\n", i+1, text)
	}
	b.WriteString("--- End of Product Information ---\n\n")
	return b.String()
}
