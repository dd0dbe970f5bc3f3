// Command north synchronises a Dropbox folder of construction
// documents into a local search index and answers questions about it.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/north/internal/adapters/driven/config/file"
	"github.com/custodia-labs/north/internal/adapters/driven/dropbox"
	"github.com/custodia-labs/north/internal/adapters/driven/extract"
	"github.com/custodia-labs/north/internal/adapters/driven/index"
	"github.com/custodia-labs/north/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/north/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/north/internal/adapters/driven/vault"
	"github.com/custodia-labs/north/internal/adapters/driven/voyage"
	"github.com/custodia-labs/north/internal/adapters/driving/cli"
	"github.com/custodia-labs/north/internal/core/ports/driven"
	"github.com/custodia-labs/north/internal/core/ports/driving"
	"github.com/custodia-labs/north/internal/core/services"
	"github.com/custodia-labs/north/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "north: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	dir, err := dataDir(cfg)
	if err != nil {
		return err
	}

	backend, err := index.NewBackend(embedder, filepath.Join(dir, "index"))
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer backend.Close()

	entity, err := buildEntityService(cfg)
	if err != nil {
		return err
	}
	reranker, err := buildReranker(cfg)
	if err != nil {
		return err
	}

	var searchOpts []services.SearchServiceOption
	var directoryOpts []services.DirectoryOption
	if entity != nil {
		searchOpts = append(searchOpts, services.WithEntityService(entity))
		directoryOpts = append(directoryOpts, services.WithDirectoryEntityService(entity))
	}
	if reranker != nil {
		searchOpts = append(searchOpts, services.WithReranker(reranker))
		directoryOpts = append(directoryOpts, services.WithDirectoryReranker(reranker))
	}

	search := services.NewSearchService(backend, searchOpts...)
	directory := services.NewDirectoryService(backend, directoryOpts...)
	importer := services.NewDirectoryImporter(vault.New(), backend)

	sync, closeSync, err := buildSyncRunner(cfg, backend)
	if err != nil {
		return err
	}
	if closeSync != nil {
		defer closeSync()
	}

	cli.SetVersion(version)
	cli.Configure(sync, search, directory, importer)
	return cli.Execute()
}

// buildSyncRunner wires the sync pipeline when a Dropbox token is
// configured. Without one the search commands still work against
// whatever is already indexed.
func buildSyncRunner(cfg driven.ConfigStore, backend driven.SearchBackend) (driving.SyncRunner, func(), error) {
	token := stringOrEnv(cfg, "dropbox.token", "DROPBOX_TOKEN")
	if token == "" {
		logger.Info("No Dropbox token configured, sync disabled")
		return nil, nil, nil
	}

	source := dropbox.New(dropbox.Config{
		Token:             token,
		Root:              cfg.GetString("dropbox.root"),
		RequestsPerSecond: cfg.GetFloat("dropbox.requests_per_second"),
		Burst:             cfg.GetInt("dropbox.burst"),
	})

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening sync state store: %w", err)
	}

	extractor := extract.NewRegistry(extract.NewTextExtractor())
	writer := services.NewIndexWriter(backend)
	engine := services.NewSyncEngine(source, extractor, writer, store, cfg.GetString("dropbox.root"))

	return engine, func() { store.Close() }, nil
}

func buildEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	key := stringOrEnv(cfg, "voyage.api_key", "VOYAGE_API_KEY")
	if key == "" {
		logger.Info("No Voyage API key configured, semantic search disabled")
		return nil, nil
	}
	svc, err := voyage.NewEmbeddingService(voyage.Config{
		APIKey: key,
		Model:  cfg.GetString("voyage.embedding_model"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}
	return svc, nil
}

func buildEntityService(cfg driven.ConfigStore) (driven.EntityService, error) {
	key := stringOrEnv(cfg, "openai.api_key", "OPENAI_API_KEY")
	if key == "" {
		logger.Info("No OpenAI API key configured, entity extraction disabled")
		return nil, nil
	}
	svc, err := openai.NewEntityService(openai.Config{
		APIKey:  key,
		BaseURL: cfg.GetString("openai.base_url"),
		Model:   cfg.GetString("openai.model"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating entity service: %w", err)
	}
	return svc, nil
}

func buildReranker(cfg driven.ConfigStore) (driven.Reranker, error) {
	key := stringOrEnv(cfg, "voyage.api_key", "VOYAGE_API_KEY")
	if key == "" {
		return nil, nil
	}
	r, err := voyage.NewReranker(voyage.RerankerConfig{
		APIKey: key,
		Model:  cfg.GetString("voyage.rerank_model"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating reranker: %w", err)
	}
	return r, nil
}

// dataDir resolves where the index and sync state live, defaulting to
// ~/.north/data when the config is silent.
func dataDir(cfg driven.ConfigStore) (string, error) {
	if dir := cfg.GetString("storage.data_dir"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".north", "data"), nil
}

// stringOrEnv reads a config key with an environment variable fallback.
func stringOrEnv(cfg driven.ConfigStore, key, env string) string {
	if v := cfg.GetString(key); v != "" {
		return v
	}
	return os.Getenv(env)
}
