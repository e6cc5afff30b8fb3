package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/factengine/factengine/internal/capability"
	"github.com/factengine/factengine/internal/core"
	"github.com/factengine/factengine/internal/logging"
	"github.com/factengine/factengine/internal/mcp"
	"github.com/factengine/factengine/internal/ratelimit"
	"github.com/factengine/factengine/internal/store"
	"github.com/factengine/factengine/pkg/config"
)

// Version is set during build.
var Version = "0.1.0"

var (
	dbPathFlag   string
	jsonOutput   bool
	transport    string
	sseHostFlag  string
	ssePortFlag  int
)

var rootCmd = &cobra.Command{
	Use:   "factengine",
	Short: "Persistent, per-agent memory engine for AI agents",
	Long: `factengine ingests free-form text, extracts discrete factual claims,
stores raw experiential content, and ranks both by a composite
semantic/strength/recency score. A single SQLite file per deployment
holds all state.

Examples:
  factengine init
  factengine serve
  factengine stats
  factengine chunks agent-1 --kind f
  factengine search "likes tea" --agent agent-1`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "database file path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")

	serveCmd.Flags().StringVar(&transport, "transport", "", "mcp transport: stdio or sse (overrides config)")
	serveCmd.Flags().StringVar(&sseHostFlag, "host", "", "sse transport host (overrides config)")
	serveCmd.Flags().IntVar(&ssePortFlag, "port", 0, "sse transport port (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(chunksCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

// loadConfig loads configuration and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPathFlag != "" {
		cfg.Database.Path = dbPathFlag
	}
	return cfg, nil
}

// openStore loads config and opens the database, exiting with code 1 if
// the config cannot be loaded, the database directory cannot be created,
// or the database cannot be opened. A missing database file is not an
// error: its directory and the file itself are created.
func openStore() (*store.Store, *config.Config) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDatabaseDir(); err != nil {
		fmt.Fprintf(os.Stderr, "error preparing database directory: %v\n", err)
		os.Exit(1)
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	return st, cfg
}

func newEngine(st *store.Store, cfg *config.Config) *core.Engine {
	embedder := capability.NewOllamaEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.APIKey)
	llm := capability.NewOllamaChatClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKey)
	return core.New(st, embedder, llm)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server (stdio or sse transport)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(1)
		}
		logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})

		if err := cfg.EnsureDatabaseDir(); err != nil {
			fmt.Fprintf(os.Stderr, "error preparing database directory: %v\n", err)
			os.Exit(1)
		}
		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := st.VerifyEmbeddingModel(cfg.Embedding.Model); err != nil {
			fmt.Fprintf(os.Stderr, "embedding model mismatch: %v\n", err)
			os.Exit(1)
		}

		engine := newEngine(st, cfg)

		var limiter *ratelimit.Limiter
		if cfg.RateLimit.Enabled {
			limiter = ratelimit.NewLimiter(&cfg.RateLimit)
		}
		mcpServer := mcp.NewServer(engine, limiter)

		selectedTransport := cfg.MCP.Transport
		if transport != "" {
			selectedTransport = transport
		}
		host := cfg.MCP.Host
		if sseHostFlag != "" {
			host = sseHostFlag
		}
		port := cfg.MCP.Port
		if ssePortFlag != 0 {
			port = ssePortFlag
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		switch selectedTransport {
		case "sse":
			sseServer := mcp.NewSSEServer(mcpServer, host, port, cfg.MCP.CORS)
			if err := sseServer.Start(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "sse server error: %v\n", err)
				os.Exit(1)
			}
		default:
			if err := mcpServer.Run(ctx); err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "mcp server error: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database file and run migrations",
	Run: func(cmd *cobra.Command, args []string) {
		st, cfg := openStore()
		defer st.Close()
		if jsonOutput {
			printJSON(map[string]any{"path": cfg.Database.Path, "status": "initialized"})
			return
		}
		fmt.Printf("initialized database at %s\n", cfg.Database.Path)
	},
}
