package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/config"
	"github.com/devmemory/navigator/internal/migrate"
	"github.com/devmemory/navigator/internal/qstore"
	"github.com/devmemory/navigator/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect and apply schema migrations",
	Long: `Inspect and apply the schema migrations that guard a navigator data
directory's on-disk store (spec-internal schema_version.json).

Examples:
  # Show the current and pending schema version
  navctl migrate status

  # Show what would be applied, without mutating anything
  navctl migrate run --dry-run

  # Apply pending migrations
  navctl migrate run`,
}

var migrateDryRun bool

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateRunCmd)
	migrateRunCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "report what would be applied without mutating the store")
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, closeStore, err := buildMigrationRunner(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		version, err := runner.CurrentVersion()
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		fmt.Printf("Current schema version: %d\n", version)
		return nil
	},
}

var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, closeStore, err := buildMigrationRunner(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		var result migrate.Result
		if migrateDryRun {
			result, err = runner.DryRun(ctx)
		} else {
			result, err = runner.Run(ctx)
		}
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		if result.UpToDate {
			fmt.Printf("Schema already at version %d, nothing to do\n", result.StartVersion)
			return nil
		}

		mode := "Applied"
		if migrateDryRun {
			mode = "Would apply"
		}
		fmt.Printf("%s %d..%d\n", mode, result.StartVersion, result.EndVersion)
		for _, step := range result.Steps {
			status := "ok"
			if step.Error != "" {
				status = "FAILED: " + step.Error
			} else if migrateDryRun {
				status = "pending"
			}
			fmt.Printf("  v%d %s [%s]\n", step.Version, step.Description, status)
		}
		return nil
	},
}

// buildMigrationRunner opens the same store backend navigatord would (per
// config.LoadWithFile), the minimum needed to construct the builtin
// migration set (some migrations touch the store directly).
func buildMigrationRunner(cmd *cobra.Command) (*migrate.Runner, func(), error) {
	cfg, err := config.LoadWithFile("")
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	dataDir, err := expandPath(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving data directory: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("building embedder: %w", err)
	}

	raw, err := buildStore(cfg, embedder)
	if err != nil {
		return nil, nil, err
	}
	instrumented := store.NewInstrumented(raw)

	runner := migrate.NewRunner(dataDir, migrate.Builtin(instrumented), zap.NewNop())
	return runner, func() { _ = raw.Close() }, nil
}

func buildStore(cfg *config.Config, embedder store.Embedder) (store.Store, error) {
	switch cfg.Store.Provider {
	case "qdrant":
		s, err := qstore.NewQdrantStore(qstore.Config{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     cfg.Qdrant.VectorSize,
		}, embedder, zap.NewNop())
		if err != nil {
			return nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		return s, nil
	default:
		chromemPath, err := expandPath(cfg.Store.Chromem.Path)
		if err != nil {
			return nil, fmt.Errorf("resolving chromem path: %w", err)
		}
		s, err := store.NewChromemStore(store.ChromemConfig{
			Path:       chromemPath,
			Compress:   cfg.Store.Chromem.Compress,
			Collection: cfg.Store.Chromem.DefaultCollection,
		}, embedder, zap.NewNop())
		if err != nil {
			return nil, fmt.Errorf("opening chromem store: %w", err)
		}
		return s, nil
	}
}

func buildEmbedder(cfg *config.Config) (store.Embedder, error) {
	switch cfg.Embeddings.Provider {
	case "remote":
		return store.NewRemoteEmbedder(store.RemoteEmbedderConfig{
			BaseURL: cfg.Embeddings.BaseURL,
			Model:   cfg.Embeddings.Model,
			APIKey:  cfg.Embeddings.APIKey.Value(),
		})
	default:
		return store.NewFastEmbedEmbedder(store.FastEmbedConfig{
			Model:    cfg.Embeddings.Model,
			CacheDir: cfg.Embeddings.CacheDir,
		})
	}
}

func expandPath(dir string) (string, error) {
	if dir == "" || dir[0] != '~' {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return home + dir[1:], nil
}
