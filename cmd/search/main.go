// Package main implements an interactive retrieval checker. It reads queries
// from stdin and prints the gate decision plus the top-k chunks with scores,
// which is handy for eyeballing what grounding a given utterance would get.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/voicecart/voicecart/engine/index"
	"github.com/voicecart/voicecart/engine/rag"
	"github.com/voicecart/voicecart/engine/semantic"
	"github.com/voicecart/voicecart/pkg/ollama"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	kbPath := envOr("KB_PATH", "ecommerce_voicebot_knowledge_base.json")
	ollamaURL := envOr("OLLAMA_URL", "http://localhost:11434")
	embedModel := envOr("EMBED_MODEL", "nomic-embed-text")
	qdrantAddr := envOr("QDRANT_URL", "localhost:6334")
	collection := envOr("QDRANT_COLLECTION", "voicecart_kb")
	dims, _ := strconv.Atoi(envOr("EMBED_DIMS", "768"))
	topK, _ := strconv.Atoi(envOr("TOP_K", "3"))

	ctx := context.Background()

	store, err := semantic.New(qdrantAddr, collection)
	if err != nil {
		fmt.Fprintln(os.Stderr, "qdrant connect:", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx, dims); err != nil {
		fmt.Fprintln(os.Stderr, "ensure collection:", err)
		os.Exit(1)
	}

	embed := ollama.NewEmbedClient(ollamaURL, embedModel, 0)

	if err := index.New(kbPath, embed, store, logger).EnsureBuilt(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "index build:", err)
		os.Exit(1)
	}

	svc := rag.New(embed, store, rag.DefaultOptions(), logger)

	fmt.Println("voicecart search — type a query, ctrl-d to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := scanner.Text()
		if query == "" {
			continue
		}

		fmt.Printf("relevant: %v\n", svc.IsRelevant(ctx, query))

		embedding, err := embed.Embed(ctx, query)
		if err != nil {
			fmt.Fprintln(os.Stderr, "embed:", err)
			continue
		}
		results, err := store.Search(ctx, embedding, topK)
		if err != nil {
			fmt.Fprintln(os.Stderr, "search:", err)
			continue
		}
		for i, r := range results {
			fmt.Printf("%d. [chunk %d, score %.3f] %s\n", i+1, r.ChunkID, r.Score, r.Content)
		}
	}
}
