package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"docqa/internal/config"
	"docqa/internal/ingest"
	"docqa/internal/llm"
	"docqa/internal/rag"
	"docqa/internal/storage"
	"docqa/internal/vectorstore"
)

func main() {
	app := &cli.App{
		Name:  "ragctl",
		Usage: "Admin CLI for the document QA service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest files or directories into a workspace",
				ArgsUsage: "<file|dir> [<file|dir>...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "workspace",
						Aliases:  []string{"w"},
						Usage:    "Target workspace ID",
						Required: true,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question against a workspace",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "workspace",
						Aliases:  []string{"w"},
						Usage:    "Workspace ID to query",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Answer mode (reference, synthesis, custom)",
						Value: string(rag.ModeReference),
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "System role, required for custom mode",
					},
					&cli.BoolFlag{
						Name:  "show-candidates",
						Usage: "Print the fused candidate list with ranks and scores",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show database and vector store status",
				Action: statusCommand,
			},
			{
				Name:  "workspaces",
				Usage: "Manage workspaces",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List all workspaces with their chunk counts",
						Action: workspacesListCommand,
					},
					{
						Name:      "create",
						Usage:     "Create a workspace",
						ArgsUsage: "<id>",
						Action:    workspacesCreateCommand,
					},
					{
						Name:      "delete",
						Usage:     "Delete a workspace with its documents, chunks, notes and vectors",
						ArgsUsage: "<id>",
						Action:    workspacesDeleteCommand,
					},
				},
			},
			{
				Name:  "notes",
				Usage: "Manage saved answers",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List the notes of a workspace, newest first",
						Action: notesListCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "workspace",
								Aliases:  []string{"w"},
								Usage:    "Workspace ID",
								Required: true,
							},
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file or directory is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	files, err := collectFiles(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	ctx := context.Background()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	vectorStore, err := newVectorStore(ctx, cfg)
	if err != nil {
		return err
	}

	embedder, err := llm.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingSize)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}

	pipeline, err := ingest.NewPipeline(
		storage.NewWorkspaceRepo(db),
		storage.NewDocumentRepo(db),
		embedder,
		vectorStore,
		cfg.QdrantCollection,
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	workspaceID := c.String("workspace")
	fmt.Fprintf(os.Stderr, "Workspace: %s\n", workspaceID)
	fmt.Fprintf(os.Stderr, "Files: %d\n\n", len(files))

	summary, ingestErr := pipeline.IngestFiles(ctx, workspaceID, files)
	if summary != nil {
		green := color.New(color.FgGreen).SprintFunc()
		for _, r := range summary.Results {
			fmt.Printf("%s %s: %d chunks, %d characters in %s\n",
				green("ok"), r.Source, r.Chunks, r.Characters, r.Duration.Round(time.Millisecond))
		}
		fmt.Printf("\nIngested %d/%d files\n", len(summary.Results), summary.Files)
	}
	return ingestErr
}

func askCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a question is required")
	}
	question := strings.Join(c.Args().Slice(), " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	vectorStore, err := newVectorStore(ctx, cfg)
	if err != nil {
		return err
	}

	embedder, err := llm.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingSize)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}

	generator, err := llm.NewChatClient(cfg.LLMBackend, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMEnabled)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	engine := rag.NewEngine(
		ragConfig(cfg.Retrieval),
		embedder,
		generator,
		vectorStore,
		cfg.QdrantCollection,
		storage.NewChunkRepo(db),
		storage.NewWorkspaceRepo(db),
	)

	resp, err := engine.Answer(ctx, rag.Request{
		WorkspaceID: c.String("workspace"),
		Question:    question,
		Mode:        c.String("mode"),
		Role:        c.String("role"),
	})
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Println(boldGreen("Answer:"))
	fmt.Println(resp.Answer)

	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println(boldGreen("Sources:"))
		for _, s := range resp.Sources {
			fmt.Printf("  %s (chunk %d, score %.4f)\n", cyan(s.Source), s.ChunkIndex, s.Score)
		}
	}

	if c.Bool("show-candidates") {
		fmt.Println()
		fmt.Println(boldGreen("Candidates:"))
		for _, cand := range resp.Candidates {
			fmt.Printf("  %s chunk=%d vector_rank=%d lexical_rank=%d score=%.4f\n",
				cyan(cand.Source), cand.ChunkIndex, cand.VectorRank, cand.LexicalRank, cand.Score)
		}
	}

	return nil
}

func workspacesListCommand(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	workspaces, err := storage.NewWorkspaceRepo(db).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	if len(workspaces) == 0 {
		fmt.Println("No workspaces")
		return nil
	}

	chunks := storage.NewChunkRepo(db)
	for _, ws := range workspaces {
		count, err := chunks.CountByWorkspace(ctx, ws.ID)
		if err != nil {
			return fmt.Errorf("failed to count chunks for %s: %w", ws.ID, err)
		}
		fmt.Printf("%s\t%s\t%d chunks\n", ws.ID, ws.CreatedAt.Format(time.RFC3339), count)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	workspaces, err := storage.NewWorkspaceRepo(db).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}
	fmt.Printf("Database:   %s (%d workspaces)\n", cfg.DBPath, len(workspaces))

	store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		return fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	exists, err := store.CollectionExists(ctx, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to reach Qdrant: %w", err)
	}
	if !exists {
		fmt.Printf("Collection: %s (missing, created on next API start)\n", cfg.QdrantCollection)
		return nil
	}

	info, err := store.GetCollectionInfo(ctx, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}
	fmt.Printf("Collection: %s (%s, %d points, vector size %d)\n",
		cfg.QdrantCollection, info.Status, info.PointsCount, info.VectorSize)
	return nil
}

func workspacesCreateCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one workspace ID is required")
	}
	id := c.Args().First()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ws, err := storage.NewWorkspaceRepo(db).GetOrCreate(context.Background(), id)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	fmt.Printf("Workspace %s ready (created %s)\n", ws.ID, ws.CreatedAt.Format(time.RFC3339))
	return nil
}

func workspacesDeleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one workspace ID is required")
	}
	id := c.Args().First()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := storage.NewWorkspaceRepo(db)
	if _, err := repo.Get(ctx, id); err != nil {
		return fmt.Errorf("failed to get workspace: %w", err)
	}

	vectorStore, err := newVectorStore(ctx, cfg)
	if err != nil {
		return err
	}

	// Vectors go first: if this fails the rows stay put and the delete
	// can simply be retried.
	if err := vectorStore.DeleteByWorkspace(ctx, cfg.QdrantCollection, id); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if err := repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	fmt.Printf("Deleted workspace %s\n", id)
	return nil
}

func notesListCommand(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	workspaceID := c.String("workspace")
	notes, err := storage.NewNoteRepo(db).ListByWorkspace(context.Background(), workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	if len(notes) == 0 {
		fmt.Println("No notes")
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	for _, note := range notes {
		fmt.Printf("%s [%d] %s\n", note.CreatedAt.Format("2006-01-02 15:04"), note.ID, bold(note.Question))
		fmt.Printf("    %s\n", note.Answer)
		if len(note.Sources) > 0 {
			fmt.Printf("    sources: %s\n", strings.Join(note.Sources, ", "))
		}
	}
	return nil
}

// collectFiles expands the given paths into ingestable files. Directories
// are walked recursively with names kept relative to the walk root; hidden
// files and directories are skipped.
func collectFiles(paths []string) ([]ingest.File, error) {
	var files []ingest.File
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if !info.IsDir() {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			files = append(files, ingest.File{Name: filepath.Base(path), Data: data})
			continue
		}

		root := path
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", p, err)
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			files = append(files, ingest.File{Name: rel, Data: data})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// openDatabase opens the SQLite database and applies migrations.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// newVectorStore connects to Qdrant and ensures the collection exists with
// the configured vector size.
func newVectorStore(ctx context.Context, cfg *config.Config) (*vectorstore.QdrantStore, error) {
	store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	if err := store.EnsureCollection(ctx, cfg.QdrantCollection, cfg.EmbeddingSize); err != nil {
		return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
	}
	return store, nil
}

// ragConfig maps the loaded retrieval tuning onto the engine's config.
func ragConfig(r config.Retrieval) rag.Config {
	return rag.Config{
		VectorK:           r.VectorK,
		LexicalK:          r.LexicalK,
		RRFK:              r.RRFK,
		AnchorTokens:      r.AnchorTokens,
		FilterChain:       r.FilterChain,
		DuplicateJaccard:  r.DuplicateJaccard,
		EntityMinKeep:     r.EntityMinKeep,
		MinFusedScore:     r.MinFusedScore,
		MinDistinctDocs:   r.MinDistinctDocs,
		ContextK:          r.ContextK,
		ContextCharBudget: r.ContextCharBudget,
		RewriteEnabled:    r.RewriteEnabled,
		RewriteN:          r.RewriteN,
		RelevanceEnabled:  r.RelevanceEnabled,
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
