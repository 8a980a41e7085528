package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/autosocio/internal/agentchat"
	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/marketplace"
	"github.com/MikeSquared-Agency/autosocio/internal/processor"
)

var (
	stateFile    string
	snapshotFile string
	enrich       bool
	partsFile    string
	agentID      string
	historyFile  string
)

var interpretCmd = &cobra.Command{
	Use:   "interpret <text>",
	Short: "Interpret a request into an intent object",
	Args:  cobra.MinimumNArgs(1),
	RunE: oneShot(func(ctx context.Context, p *processor.Processor, req processor.Request) (any, error) {
		return p.Interpret(ctx, req)
	}),
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Run technical validation and conversational activation",
	Args:  cobra.MinimumNArgs(1),
	RunE: oneShot(func(ctx context.Context, p *processor.Processor, req processor.Request) (any, error) {
		return p.Analyze(ctx, req)
	}),
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <text>",
	Short: "Run niche activation, matchmaking and decision optimization",
	Args:  cobra.MinimumNArgs(1),
	RunE: oneShot(func(ctx context.Context, p *processor.Processor, req processor.Request) (any, error) {
		return p.RunPipeline(ctx, req)
	}),
}

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate <text>",
	Short: "Classify a request and dispatch the agents it needs",
	Args:  cobra.MinimumNArgs(1),
	RunE: oneShot(func(ctx context.Context, p *processor.Processor, req processor.Request) (any, error) {
		if stateFile != "" {
			state, err := readJSONFile[map[string]any](stateFile)
			if err != nil {
				return nil, err
			}
			req.AppState = state
		}
		return p.Orchestrate(ctx, req)
	}),
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit an application snapshot",
	Args:  cobra.NoArgs,
	RunE: oneShot(func(ctx context.Context, p *processor.Processor, req processor.Request) (any, error) {
		if snapshotFile == "" {
			return nil, fmt.Errorf("--snapshot is required")
		}
		snapshot, err := readJSONFile[map[string]any](snapshotFile)
		if err != nil {
			return nil, err
		}
		req.AppState = snapshot

		report, err := p.Audit(ctx, req)
		if err != nil || !enrich {
			return report, err
		}
		return p.EnrichAudit(ctx, processor.Request{Input: req.Input, AppState: snapshot, Report: report})
	}),
}

var partsCmd = &cobra.Command{
	Use:   "parts <vehicle and part>",
	Short: "Rank candidate parts for a vehicle",
	Args:  cobra.MinimumNArgs(1),
	RunE: oneShot(func(ctx context.Context, p *processor.Processor, req processor.Request) (any, error) {
		if partsFile == "" {
			return nil, fmt.Errorf("--parts is required")
		}
		parts, err := readJSONFile[[]marketplace.Part](partsFile)
		if err != nil {
			return nil, err
		}
		req.Parts = parts
		return p.SourceParts(ctx, req)
	}),
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message to a catalog agent",
	Args:  cobra.MinimumNArgs(1),
	RunE: oneShot(func(ctx context.Context, p *processor.Processor, req processor.Request) (any, error) {
		if agentID == "" {
			return nil, fmt.Errorf("--agent is required")
		}
		req.AgentID = agentID
		if historyFile != "" {
			history, err := readJSONFile[[]agentchat.Turn](historyFile)
			if err != nil {
				return nil, err
			}
			req.History = history
		}
		return p.Chat(ctx, req)
	}),
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the niche registry and agent catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cat *catalog.Catalog
			err error
		)
		if cfg.CatalogPath != "" {
			cat, err = catalog.LoadFile(cfg.CatalogPath)
		} else {
			cat, err = catalog.Default()
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"niches": cat.Niches(),
			"agents": cat.Agents(),
		})
	},
}

// oneShot builds the app without NATS, runs op once and prints the result.
func oneShot(op func(context.Context, *processor.Processor, processor.Request) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.close()

		out, err := op(ctx, a.processor, processor.Request{Input: strings.Join(args, " ")})
		if err != nil {
			code, msg := processor.Classify(err)
			return fmt.Errorf("%s: %s: %w", code, msg, err)
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
}

func readJSONFile[T any](path string) (T, error) {
	var out T
	b, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
