package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rackguard/rackguard/internal/metrics"
	"github.com/rackguard/rackguard/internal/profile"
	"github.com/rackguard/rackguard/plugin/ai"
	"github.com/rackguard/rackguard/plugin/ai/cache"
	"github.com/rackguard/rackguard/server"
	"github.com/rackguard/rackguard/server/ingest"
	"github.com/rackguard/rackguard/server/retrieval"
	"github.com/rackguard/rackguard/server/session"
	"github.com/rackguard/rackguard/store"
	"github.com/rackguard/rackguard/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "rackguard",
	Short: "Retrieval service for the FM Global 8-34 knowledge base",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger, prof, st, err := bootstrap()
		if err != nil {
			return err
		}
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		srv, err := server.New(prof, st, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("server starting",
			slog.String("addr", prof.Addr),
			slog.Int("port", prof.Port),
			slog.String("version", prof.Version))
		return srv.Start(ctx)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Run one query through the retrieval pipeline and print the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, prof, st, err := bootstrap()
		if err != nil {
			return err
		}
		defer st.Close()

		engine, err := buildEngine(prof, st, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		query := strings.Join(args, " ")
		if viper.GetBool("intent-only") {
			intent, err := engine.AnalyzeIntent(query)
			if err != nil {
				return err
			}
			return printJSON(intent)
		}

		resp, err := engine.RouteAndSearch(ctx, query, viper.GetString("session"))
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Chunk, embed, and store documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, prof, st, err := bootstrap()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		aiConfig := ai.NewConfigFromProfile(prof)
		if err := aiConfig.Validate(); err != nil {
			return err
		}
		vectorCache := cache.NewService(cache.DefaultServiceConfig())
		defer vectorCache.Close()
		embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding, vectorCache)
		if err != nil {
			return err
		}

		ingestor := ingest.NewIngestor(st, embedder, metrics.New(nil), logger)
		sourceType := viper.GetString("source-type")

		total := 0
		for _, path := range args {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			n, err := ingestor.Ingest(cmd.Context(), &ingest.Document{
				SourceID:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
				SourceType: sourceType,
				Content:    string(content),
			})
			if err != nil {
				return err
			}
			logger.Info("document ingested", slog.String("path", path), slog.Int("chunks", n))
			total += n
		}
		fmt.Printf("ingested %d chunks from %d documents\n", total, len(args))
		return nil
	},
}

func bootstrap() (*slog.Logger, *profile.Profile, *store.Store, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(viper.GetString("log-level")),
	}))
	slog.SetDefault(logger)

	prof := &profile.Profile{}
	prof.FromEnv()
	if dsn := viper.GetString("dsn"); dsn != "" {
		prof.DSN = dsn
	}
	if port := viper.GetInt("port"); port != 0 {
		prof.Port = port
	}
	if err := prof.Validate(); err != nil {
		return nil, nil, nil, err
	}

	driver, err := db.NewDBDriver(prof)
	if err != nil {
		return nil, nil, nil, err
	}
	return logger, prof, store.New(driver, prof), nil
}

func buildEngine(prof *profile.Profile, st *store.Store, logger *slog.Logger) (*retrieval.Engine, error) {
	aiConfig := ai.NewConfigFromProfile(prof)
	if err := aiConfig.Validate(); err != nil {
		return nil, err
	}
	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding, cache.NewMockVectorCache())
	if err != nil {
		return nil, err
	}
	tracker := session.NewTracker(session.DefaultStoreConfig())
	executor := retrieval.NewExecutor(st, embedder, logger)
	return retrieval.NewEngine(executor, tracker, nil, logger), nil
}

func logLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("dsn", "", "PostgreSQL connection string (overrides RACKGUARD_DSN)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides RACKGUARD_PORT)")
	askCmd.Flags().String("session", "", "conversation session id")
	askCmd.Flags().Bool("intent-only", false, "print routing analysis without searching")
	ingestCmd.Flags().String("source-type", "", "source type override (table, figure, text)")

	_ = viper.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("session", askCmd.Flags().Lookup("session"))
	_ = viper.BindPFlag("intent-only", askCmd.Flags().Lookup("intent-only"))
	_ = viper.BindPFlag("source-type", ingestCmd.Flags().Lookup("source-type"))

	viper.SetEnvPrefix("rackguard")
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, askCmd, ingestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
