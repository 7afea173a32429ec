// Package index populates the vector store from the knowledge-base source.
// The build runs at most once per store lifetime: a non-empty collection is
// treated as already built and is never re-extracted or re-embedded, even if
// the source file changed since. The only way back is an explicit reset of
// the collection followed by Rebuild.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/voicecart/voicecart/engine/extract"
	"github.com/voicecart/voicecart/engine/kb"
	"github.com/voicecart/voicecart/engine/semantic"
	"github.com/voicecart/voicecart/pkg/fn"
)

// Embedder batch-encodes chunk texts at build time.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the slice of the vector store the builder needs.
type Store interface {
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Builder orchestrates extract → embed → store.
type Builder struct {
	kbPath string
	embed  Embedder
	store  Store
	logger *slog.Logger

	once    sync.Once
	onceErr error
}

// New creates a Builder reading the knowledge base at kbPath.
func New(kbPath string, embed Embedder, store Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{kbPath: kbPath, embed: embed, store: store, logger: logger}
}

// EnsureBuilt populates the store if it is empty. Safe to call from
// concurrent first accessors; exactly one build runs per process and later
// calls return its outcome.
func (b *Builder) EnsureBuilt(ctx context.Context) error {
	b.once.Do(func() {
		b.onceErr = b.build(ctx)
	})
	return b.onceErr
}

// Rebuild runs the build unconditionally. Callers are expected to have
// cleared the collection first; a still-populated store is skipped the same
// way EnsureBuilt skips it.
func (b *Builder) Rebuild(ctx context.Context) error {
	return b.build(ctx)
}

// indexBatch carries chunk texts with their embeddings between stages.
type indexBatch struct {
	texts   []string
	vectors [][]float32
}

func (b *Builder) build(ctx context.Context) error {
	count, err := b.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("index: count: %w", err)
	}
	if count > 0 {
		b.logger.Info("index already exists, skipping build", "chunks", count)
		return nil
	}

	pipeline := fn.Then(
		fn.TracedStage("index.extract", b.extractStage),
		fn.Then(
			fn.TracedStage("index.embed", b.embedStage),
			fn.TracedStage("index.store", b.storeStage),
		),
	)

	stored, err := pipeline(ctx, b.kbPath).Unwrap()
	if err != nil {
		return err
	}
	if stored > 0 {
		b.logger.Info("indexed knowledge base chunks", "chunks", stored)
	}
	return nil
}

// extractStage loads the knowledge base and renders its chunk texts.
func (b *Builder) extractStage(_ context.Context, path string) fn.Result[[]string] {
	chunks := extract.Chunks(kb.Load(path, b.logger))
	b.logger.Info("extracted knowledge base chunks", "chunks", len(chunks))
	return fn.Ok(chunks)
}

// embedStage batch-encodes the chunk texts. An empty chunk set skips the
// encoder entirely.
func (b *Builder) embedStage(ctx context.Context, texts []string) fn.Result[indexBatch] {
	if len(texts) == 0 {
		return fn.Ok(indexBatch{})
	}
	vectors, err := b.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return fn.Err[indexBatch](fmt.Errorf("index: embed: %w", err))
	}
	return fn.Ok(indexBatch{texts: texts, vectors: vectors})
}

// storeStage upserts the whole batch in one call, retrying transient store
// failures. Chunk ids are sequential from zero; point UUIDs derive from them
// so a rebuild of the same knowledge base lands on the same points.
func (b *Builder) storeStage(ctx context.Context, batch indexBatch) fn.Result[int] {
	if len(batch.texts) == 0 {
		b.logger.Warn("no knowledge base information to index, continuing without grounding context")
		return fn.Ok(0)
	}

	records := make([]semantic.VectorRecord, len(batch.texts))
	for i, text := range batch.texts {
		records[i] = semantic.VectorRecord{
			ID:        PointID(i),
			Embedding: batch.vectors[i],
			Payload: map[string]any{
				"content":  text,
				"chunk_id": i,
			},
		}
	}

	result := fn.Retry(ctx, fn.DefaultRetry, func(ctx context.Context) fn.Result[int] {
		if err := b.store.Upsert(ctx, records); err != nil {
			return fn.Err[int](fmt.Errorf("index: upsert: %w", err))
		}
		return fn.Ok(len(records))
	})
	return result
}

// PointID returns the deterministic point UUID for a chunk id.
func PointID(chunkID int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("chunk_%d", chunkID))).String()
}
