package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/time/rate"

	"docqa/internal/contextutil"
	"docqa/internal/llm"
	"docqa/internal/storage"
	"docqa/internal/vectorstore"
)

// defaultEmbedBatch is how many chunks go into one embedding call unless
// WithEmbedBatch overrides it.
const defaultEmbedBatch = 16

// Pipeline turns uploaded files into stored, embedded chunks: extract text,
// split, embed, then write SQLite rows and Qdrant points.
type Pipeline struct {
	workspaces  storage.WorkspaceStore
	documents   storage.DocumentStore
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	splitter    textsplitter.RecursiveCharacter
	pool        *ants.Pool
	limiter     *rate.Limiter
	embedBatch  int
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithEmbedBatch sets how many chunks are embedded per backend call.
func WithEmbedBatch(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		p.embedBatch = n
		return nil
	}
}

// WithRateLimit caps embedding calls at reqPerSec with the given burst.
// A non-positive rate disables the limit.
func WithRateLimit(reqPerSec float64, burst int) Option {
	return func(p *Pipeline) error {
		if reqPerSec <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 0)
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(reqPerSec), burst)
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	workspaces storage.WorkspaceStore,
	documents storage.DocumentStore,
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	opts ...Option,
) (*Pipeline, error) {
	if workspaces == nil {
		return nil, ErrWorkspaceStoreRequired
	}
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectorStore == nil {
		return nil, ErrVectorStoreRequired
	}
	if collection == "" {
		return nil, ErrCollectionRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		workspaces:  workspaces,
		documents:   documents,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		splitter:    newSplitter(),
		pool:        pool,
		limiter:     rate.NewLimiter(rate.Inf, 0),
		embedBatch:  defaultEmbedBatch,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	return p, nil
}

// Release frees the worker pool. The pipeline must not be used afterwards.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// File is one named payload to ingest.
type File struct {
	Name string
	Data []byte
}

// Result reports what one ingested file produced.
type Result struct {
	DocumentID  int64
	Source      string
	Chunks      int
	Characters  int
	MinChunkLen int
	MaxChunkLen int
	Duration    time.Duration
}

// Summary aggregates an IngestFiles run.
type Summary struct {
	Files   int
	Failed  int
	Results []Result
}

// IngestFile extracts, splits, embeds and stores a single file under the
// given workspace, creating the workspace if needed. The document and its
// chunks are committed to SQLite before vectors are upserted; if the upsert
// fails the document is deleted again so the two stores stay in sync.
func (p *Pipeline) IngestFile(ctx context.Context, workspaceID, filename string, data []byte) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if workspaceID == "" {
		return nil, fmt.Errorf("workspaceID must not be empty")
	}

	text, err := extractText(filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	chunks, err := splitText(p.splitter, text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	if _, err := p.workspaces.GetOrCreate(ctx, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}

	embeddings, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	doc := &storage.Document{
		WorkspaceID: workspaceID,
		Source:      filepath.Base(filename),
	}
	records := make([]*storage.Chunk, len(chunks))
	for i, content := range chunks {
		records[i] = &storage.Chunk{
			ChunkIndex: i,
			Content:    content,
			PointID:    uuid.New().String(),
		}
	}

	if err := p.documents.InsertWithChunks(ctx, doc, records); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	points := make([]vectorstore.Point, len(records))
	for i, record := range records {
		points[i] = vectorstore.Point{
			ID:  record.PointID,
			Vec: embeddings[i],
			Meta: map[string]any{
				"workspace_id": workspaceID,
				"document_id":  doc.ID,
				"chunk_id":     record.ID,
				"chunk_index":  record.ChunkIndex,
				"source":       doc.Source,
			},
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		// Roll the document back so SQLite does not reference vectors that
		// were never stored.
		if delErr := p.documents.Delete(ctx, doc.ID); delErr != nil {
			logger.WarnContext(ctx, "failed to roll back document after upsert failure",
				"document_id", doc.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	minLen, maxLen := chunkLengthRange(chunks)
	result := &Result{
		DocumentID:  doc.ID,
		Source:      doc.Source,
		Chunks:      len(chunks),
		Characters:  utf8.RuneCountInString(text),
		MinChunkLen: minLen,
		MaxChunkLen: maxLen,
		Duration:    time.Since(start),
	}

	logger.InfoContext(ctx, "ingested file",
		"workspace_id", workspaceID,
		"source", result.Source,
		"document_id", result.DocumentID,
		"chunks", result.Chunks,
		"characters", result.Characters,
		"chunk_len_min", result.MinChunkLen,
		"chunk_len_max", result.MaxChunkLen,
		"duration", result.Duration,
	)

	return result, nil
}

// IngestFiles ingests a set of files into one workspace.
// Errors for individual files are logged but don't stop the run.
func (p *Pipeline) IngestFiles(ctx context.Context, workspaceID string, files []File) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "starting ingestion", "workspace_id", workspaceID, "total_files", len(files))

	summary := &Summary{Files: len(files)}

	for _, file := range files {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := p.IngestFile(ctx, workspaceID, file.Name, file.Data)
		if err != nil {
			summary.Failed++
			logger.ErrorContext(ctx, "failed to ingest file", "source", file.Name, "error", err)
			// Continue with next file
			continue
		}

		summary.Results = append(summary.Results, *result)
	}

	logger.InfoContext(ctx, "ingestion completed",
		"total_files", summary.Files, "success", len(summary.Results), "errors", summary.Failed)

	if summary.Failed > 0 {
		return summary, fmt.Errorf("ingestion completed with %d errors", summary.Failed)
	}

	return summary, nil
}

// embedChunks embeds chunk contents in embedBatch-sized slices through the
// worker pool. Each batch writes into its own region of the shared result
// slice so workers never contend; the first error cancels the rest.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	embeddings := make([][]float32, len(chunks))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for start := 0; start < len(chunks); start += p.embedBatch {
		end := start + p.embedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		out := embeddings[start:end]

		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()

			if err := p.limiter.Wait(ctx); err != nil {
				fail(err)
				return
			}

			vecs, err := p.embedder.EmbedTexts(ctx, batch)
			if err != nil {
				fail(err)
				return
			}
			if len(vecs) != len(batch) {
				fail(fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vecs)))
				return
			}
			copy(out, vecs)
		}); err != nil {
			wg.Done()
			fail(err)
			break
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", firstErr)
	}

	return embeddings, nil
}

// chunkLengthRange reports the smallest and largest chunk size in runes.
func chunkLengthRange(chunks []string) (minLen, maxLen int) {
	for i, c := range chunks {
		n := utf8.RuneCountInString(c)
		if i == 0 || n < minLen {
			minLen = n
		}
		if n > maxLen {
			maxLen = n
		}
	}
	return minLen, maxLen
}
