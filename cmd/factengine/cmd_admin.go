package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/factengine/factengine/internal/core"
	"github.com/factengine/factengine/internal/store"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database-wide statistics",
	Run: func(cmd *cobra.Command, args []string) {
		st, _ := openStore()
		defer st.Close()

		stats, err := st.GetStats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error getting stats: %v\n", err)
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(stats)
			return
		}
		fmt.Printf("database: %s\n", stats.Path)
		fmt.Printf("schema version: %d\n", stats.SchemaVersion)
		fmt.Printf("facts: %d\n", stats.FactCount)
		fmt.Printf("memories: %d\n", stats.MemoryCount)
		fmt.Printf("superseded: %d\n", stats.SupersededCount)
		fmt.Printf("blocks: %d\n", stats.BlockCount)
		fmt.Printf("file size: %d bytes\n", stats.FileSizeBytes)
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents that own at least one chunk",
	Run: func(cmd *cobra.Command, args []string) {
		st, _ := openStore()
		defer st.Close()

		agents, err := st.Agents()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error listing agents: %v\n", err)
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(agents)
			return
		}
		for _, a := range agents {
			fmt.Println(a)
		}
	},
}

var (
	chunksKindFlag       string
	chunksSupersededFlag bool
	chunksLimitFlag      int
)

var chunksCmd = &cobra.Command{
	Use:   "chunks <agent>",
	Short: "List an agent's chunks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, _ := openStore()
		defer st.Close()

		var kind *store.Kind
		switch chunksKindFlag {
		case "f":
			k := store.KindFact
			kind = &k
		case "m":
			k := store.KindMemory
			kind = &k
		case "":
		default:
			fmt.Fprintf(os.Stderr, "invalid --kind %q, want f or m\n", chunksKindFlag)
			os.Exit(1)
		}

		chunks, err := st.ListChunks(args[0], kind, chunksSupersededFlag, chunksLimitFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error listing chunks: %v\n", err)
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(chunks)
			return
		}
		for _, c := range chunks {
			status := "active"
			if c.SupersededBy != nil {
				status = "superseded"
			}
			fmt.Printf("%s [%s/%s] %q (intensity %.2f)\n", c.ID, c.Kind, status, c.Content, c.RunningIntensity)
		}
	},
}

var blocksCmd = &cobra.Command{
	Use:   "blocks <agent>",
	Short: "List an agent's memory blocks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, _ := openStore()
		defer st.Close()

		blocks, err := st.ListBlocks(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error listing blocks: %v\n", err)
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(blocks)
			return
		}
		for _, b := range blocks {
			fmt.Printf("[%s] %s: %d bytes\n", b.Scope, b.Key, len(b.Value))
		}
	},
}

var blockCmd = &cobra.Command{
	Use:   "block <agent> <key>",
	Short: "Show a single memory block's value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		st, _ := openStore()
		defer st.Close()

		b, err := st.GetBlockByKey(args[0], "", args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error getting block: %v\n", err)
			os.Exit(1)
		}
		if b == nil {
			fmt.Fprintf(os.Stderr, "block not found: %s\n", args[1])
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(b)
			return
		}
		fmt.Println(b.Value)
	},
}

var (
	searchAgentFlag string
	searchKindFlag  string
	searchLimitFlag int
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Recall memories matching text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if searchAgentFlag == "" {
			fmt.Fprintln(os.Stderr, "--agent is required")
			os.Exit(1)
		}
		var kind *store.Kind
		switch searchKindFlag {
		case "f":
			k := store.KindFact
			kind = &k
		case "m":
			k := store.KindMemory
			kind = &k
		case "":
		default:
			fmt.Fprintf(os.Stderr, "invalid --kind %q, want f or m\n", searchKindFlag)
			os.Exit(1)
		}
		query := strings.Join(args, " ")

		st, cfg := openStore()
		defer st.Close()
		engine := newEngine(st, cfg)

		hits, err := engine.Recall(context.Background(), searchAgentFlag, nil, query, kind, searchLimitFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error searching: %v\n", err)
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(hits)
			return
		}
		for i, h := range hits {
			fmt.Printf("%d. [%s] %q (score %.3f)\n", i+1, h.Chunk.Kind, h.Chunk.Content, h.Score)
		}
	},
}

var deleteForceFlag bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id...>",
	Short: "Delete chunks by id",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !deleteForceFlag {
			fmt.Fprintln(os.Stderr, "refusing to delete without --force")
			os.Exit(1)
		}
		st, cfg := openStore()
		defer st.Close()
		engine := newEngine(st, cfg)

		deleted := 0
		for _, id := range args {
			res, err := engine.DeleteChunk(id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error deleting %s: %v\n", id, err)
				os.Exit(1)
			}
			if res.Status == core.MutationOK {
				deleted++
			} else {
				fmt.Fprintf(os.Stderr, "not found: %s\n", id)
			}
		}
		if jsonOutput {
			printJSON(map[string]any{"deleted": deleted})
			return
		}
		fmt.Printf("deleted %d chunk(s)\n", deleted)
	},
}

var (
	purgeAgentFlag  string
	purgeBeforeFlag string
	purgeForceFlag  bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Bulk-delete chunks created before a cutoff date",
	Run: func(cmd *cobra.Command, args []string) {
		if !purgeForceFlag {
			fmt.Fprintln(os.Stderr, "refusing to purge without --force")
			os.Exit(1)
		}
		if purgeBeforeFlag == "" {
			fmt.Fprintln(os.Stderr, "--before is required")
			os.Exit(1)
		}
		cutoff, err := time.Parse(time.RFC3339, purgeBeforeFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --before: %v\n", err)
			os.Exit(1)
		}

		st, _ := openStore()
		defer st.Close()

		n, err := st.DeleteChunksBefore(purgeAgentFlag, cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error purging: %v\n", err)
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(map[string]any{"deleted": n})
			return
		}
		fmt.Printf("purged %d chunk(s)\n", n)
	},
}

// exportDoc is the export/import file format: version 1, an agent id, an
// export timestamp, every chunk (embeddings Base64-encoded since JSON has
// no binary type), and every block.
type exportDoc struct {
	Version    int               `json:"version"`
	AgentID    string            `json:"agentId"`
	ExportedAt string            `json:"exportedAt"`
	Chunks     []exportChunk     `json:"chunks"`
	Blocks     []*store.Block    `json:"blocks"`
}

type exportChunk struct {
	ID               string  `json:"id"`
	AgentID          string  `json:"agentId"`
	Scope            string  `json:"scope"`
	Content          string  `json:"content"`
	ContentHash      *string `json:"contentHash,omitempty"`
	Embedding        string  `json:"embedding"`
	Metadata         *string `json:"metadata,omitempty"`
	Kind             string  `json:"kind"`
	RunningIntensity float64 `json:"runningIntensity"`
	EncounterCount   int     `json:"encounterCount"`
	AccessCount      int     `json:"accessCount"`
	LastAccessedAt   string  `json:"lastAccessedAt"`
	CreatedAt        string  `json:"createdAt"`
	SupersededBy     *string `json:"supersededBy,omitempty"`
}

var exportCmd = &cobra.Command{
	Use:   "export <agent>",
	Short: "Export an agent's chunks and blocks as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		agentID := args[0]
		st, _ := openStore()
		defer st.Close()

		chunks, err := st.AllChunks(agentID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error exporting chunks: %v\n", err)
			os.Exit(1)
		}
		blocks, err := st.ListBlocks(agentID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error exporting blocks: %v\n", err)
			os.Exit(1)
		}

		doc := exportDoc{
			Version:    1,
			AgentID:    agentID,
			ExportedAt: time.Now().UTC().Format(time.RFC3339),
			Blocks:     blocks,
		}
		for _, c := range chunks {
			doc.Chunks = append(doc.Chunks, exportChunk{
				ID:               c.ID,
				AgentID:          c.AgentID,
				Scope:            c.Scope,
				Content:          c.Content,
				ContentHash:      c.ContentHash,
				Embedding:        base64.StdEncoding.EncodeToString(c.Embedding),
				Metadata:         c.Metadata,
				Kind:             string(c.Kind),
				RunningIntensity: c.RunningIntensity,
				EncounterCount:   c.EncounterCount,
				AccessCount:      c.AccessCount,
				LastAccessedAt:   c.LastAccessedAt.Format(time.RFC3339Nano),
				CreatedAt:        c.CreatedAt.Format(time.RFC3339Nano),
				SupersededBy:     c.SupersededBy,
			})
		}

		printJSON(doc)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import chunks and blocks from a JSON export, skipping duplicates",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading %s: %v\n", args[0], err)
			os.Exit(1)
		}
		var doc exportDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			fmt.Fprintf(os.Stderr, "error parsing %s: %v\n", args[0], err)
			os.Exit(1)
		}
		if doc.Version != 1 {
			fmt.Fprintf(os.Stderr, "unsupported export version: %d\n", doc.Version)
			os.Exit(1)
		}

		st, _ := openStore()
		defer st.Close()

		inserted, skipped := 0, 0
		for _, ec := range doc.Chunks {
			embedding, err := base64.StdEncoding.DecodeString(ec.Embedding)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error decoding embedding for %s: %v\n", ec.ID, err)
				os.Exit(1)
			}
			lastAccessedAt, err := time.Parse(time.RFC3339Nano, ec.LastAccessedAt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error parsing timestamp for %s: %v\n", ec.ID, err)
				os.Exit(1)
			}
			createdAt, err := time.Parse(time.RFC3339Nano, ec.CreatedAt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error parsing timestamp for %s: %v\n", ec.ID, err)
				os.Exit(1)
			}

			c := &store.Chunk{
				ID: ec.ID, AgentID: ec.AgentID, Scope: ec.Scope, Content: ec.Content,
				ContentHash: ec.ContentHash, Embedding: embedding, Metadata: ec.Metadata,
				Kind: store.Kind(ec.Kind), RunningIntensity: ec.RunningIntensity,
				EncounterCount: ec.EncounterCount, AccessCount: ec.AccessCount,
				LastAccessedAt: lastAccessedAt, CreatedAt: createdAt, SupersededBy: ec.SupersededBy,
			}
			ok, err := st.InsertChunkIgnore(c)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error importing chunk %s: %v\n", c.ID, err)
				os.Exit(1)
			}
			if ok {
				inserted++
			} else {
				skipped++
			}
		}

		blocksInserted, blocksSkipped := 0, 0
		for _, b := range doc.Blocks {
			ok, err := st.UpsertBlockIgnore(b.AgentID, b.Scope, b.Key, b.Value, b.UpdatedAt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error importing block %s/%s: %v\n", b.Scope, b.Key, err)
				os.Exit(1)
			}
			if ok {
				blocksInserted++
			} else {
				blocksSkipped++
			}
		}

		if jsonOutput {
			printJSON(map[string]any{
				"chunksInserted": inserted, "chunksSkipped": skipped,
				"blocksInserted": blocksInserted, "blocksSkipped": blocksSkipped,
			})
			return
		}
		fmt.Printf("chunks: %d inserted, %d skipped\n", inserted, skipped)
		fmt.Printf("blocks: %d inserted, %d skipped\n", blocksInserted, blocksSkipped)
	},
}

func init() {
	chunksCmd.Flags().StringVar(&chunksKindFlag, "kind", "", "filter by kind: f or m")
	chunksCmd.Flags().BoolVar(&chunksSupersededFlag, "superseded", false, "include superseded chunks")
	chunksCmd.Flags().IntVar(&chunksLimitFlag, "limit", -1, "maximum rows to list (-1 = unlimited)")

	searchCmd.Flags().StringVar(&searchAgentFlag, "agent", "", "agent to search (required)")
	searchCmd.Flags().StringVar(&searchKindFlag, "kind", "", "filter by kind: f or m")
	searchCmd.Flags().IntVar(&searchLimitFlag, "limit", 10, "maximum hits to return")

	deleteCmd.Flags().BoolVar(&deleteForceFlag, "force", false, "confirm deletion")

	purgeCmd.Flags().StringVar(&purgeAgentFlag, "agent", "", "restrict purge to one agent")
	purgeCmd.Flags().StringVar(&purgeBeforeFlag, "before", "", "delete chunks created before this RFC3339 timestamp")
	purgeCmd.Flags().BoolVar(&purgeForceFlag, "force", false, "confirm purge")
}
