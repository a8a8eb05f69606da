// Package cmd — ingest command.
// Runs one ingestion end to end: fetch/read → route → parse → clean →
// optional embedding → chart planning, printing the event stream and
// optionally exporting the table.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/gaurav-prasanna/tablepipe/core"
	"github.com/gaurav-prasanna/tablepipe/core/fetch"
	"github.com/gaurav-prasanna/tablepipe/core/output"
	"github.com/gaurav-prasanna/tablepipe/core/render"
	"github.com/gaurav-prasanna/tablepipe/internal/config"
	"github.com/gaurav-prasanna/tablepipe/internal/logging"
	"github.com/gaurav-prasanna/tablepipe/pipeline"
	"github.com/gaurav-prasanna/tablepipe/plan"
	"github.com/gaurav-prasanna/tablepipe/store/sqlite"
	"github.com/spf13/cobra"
)

// Flag variables.
var (
	flagFile        string
	flagContentType string
	flagName        string
	flagEmbed       bool
	flagCSV         bool
	flagJSON        bool
	flagMarkdown    bool
	flagPDF         bool
	flagOutputDir   string
	flagConfig      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url]",
	Short: "Ingest a data source and normalize it into a table",
	Long: `Ingest fetches a URL (or reads a local file with --file), detects its
format, normalizes it into a table, and streams the pipeline's progress.

Examples:
  tablepipe ingest https://example.com/data.csv --csv
  tablepipe ingest https://example.com/feed.xml --json --output_dir ./out
  tablepipe ingest --file payload.json --content_type application/json
  tablepipe ingest https://example.com/data.csv --embed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&flagFile, "file", "", "Read the payload from a local file instead of fetching a URL")
	ingestCmd.Flags().StringVar(&flagContentType, "content_type", "", "Content type hint for --file payloads")
	ingestCmd.Flags().StringVar(&flagName, "name", "", "Table name (default: derived from the source)")
	ingestCmd.Flags().BoolVar(&flagEmbed, "embed", false, "Embed rows into the vector index")

	// Export format flags (mutually exclusive, all optional).
	ingestCmd.Flags().BoolVar(&flagCSV, "csv", false, "Export CSV")
	ingestCmd.Flags().BoolVar(&flagJSON, "json", false, "Export JSON")
	ingestCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Export Markdown")
	ingestCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Export PDF")

	ingestCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
	ingestCmd.Flags().StringVar(&flagConfig, "config", "", "Config file path (default: tablepipe.toml)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	renderer, err := selectRenderer()
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Session:     "cli",
		Name:        flagName,
		ContentType: flagContentType,
		Embed:       flagEmbed,
	}
	switch {
	case len(args) == 1 && flagFile != "":
		return fmt.Errorf("pass either a URL or --file, not both")
	case len(args) == 1:
		parsed, err := url.Parse(args[0])
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid URL: %s (must include scheme, e.g. https://example.com)", args[0])
		}
		req.URL = args[0]
	case flagFile != "":
		data, err := os.ReadFile(flagFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", flagFile, err)
		}
		req.Text = string(data)
	default:
		return fmt.Errorf("a URL argument or --file is required")
	}

	cfg := config.Load(flagConfig)
	logger, closeLog := logging.Setup(cfg.Logging.Level, cfg.Logging.SeqURL)
	defer closeLog()

	pipe, store, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var table *core.Table
	for ev := range pipe.Run(context.Background(), req) {
		switch ev.Name {
		case pipeline.EventLog:
			fmt.Fprintf(os.Stdout, "%v\n", ev.Payload)
		case pipeline.EventSchema:
			s := ev.Payload.(pipeline.SchemaPayload)
			fmt.Fprintf(os.Stdout, "✓ Schema: %d columns, %d rows\n", len(s.Columns), s.RowCount)
		case pipeline.EventWarn:
			fmt.Fprintf(os.Stderr, "⚠ %v\n", ev.Payload)
		case pipeline.EventVectorized:
			v := ev.Payload.(pipeline.VectorizedPayload)
			fmt.Fprintf(os.Stdout, "✓ Embedded %d rows\n", v.Count)
		case pipeline.EventInsights:
			in := ev.Payload.(pipeline.InsightsPayload)
			for _, c := range in.Charts {
				fmt.Fprintf(os.Stdout, "✓ Chart: %s (%s)\n", c.Title, c.Type)
			}
		case pipeline.EventTable:
			t := ev.Payload.(core.Table)
			table = &t
		case pipeline.EventError:
			return fmt.Errorf("ingestion failed: %v", ev.Payload)
		}
	}

	if renderer == nil || table == nil {
		return nil
	}

	data, err := renderer.Render(*table)
	if err != nil {
		return fmt.Errorf("rendering export: %w", err)
	}
	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	source := req.URL
	if source == "" {
		source = table.Name
	}
	path, err := writer.Write(source, data, renderer.Extension())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)
	return nil
}

// selectRenderer creates the Renderer for the chosen export flag, or
// nil when no export was requested.
func selectRenderer() (core.Renderer, error) {
	count := 0
	for _, set := range []bool{flagCSV, flagJSON, flagMarkdown, flagPDF} {
		if set {
			count++
		}
	}
	if count > 1 {
		return nil, fmt.Errorf("only one export format allowed per run (got %d)", count)
	}
	switch {
	case flagCSV:
		return render.NewCSVRenderer(), nil
	case flagJSON:
		return render.NewJSONRenderer(), nil
	case flagMarkdown:
		return render.NewMarkdownRenderer(), nil
	case flagPDF:
		return render.NewPDFRenderer(), nil
	default:
		return nil, nil
	}
}

// buildPipeline wires the pipeline from configuration. Collaborators
// without configuration are simply absent; the pipeline degrades per
// its error taxonomy.
func buildPipeline(cfg config.Config, logger *slog.Logger) (*pipeline.Pipeline, *sqlite.Store, error) {
	opts := []pipeline.Option{
		pipeline.WithFetcher(fetch.New()),
		pipeline.WithLogger(logger),
	}

	var store *sqlite.Store
	if cfg.Store.Path != "" {
		var err error
		store, err = sqlite.New(cfg.Store.Path, sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("opening store: %w", err)
		}
		if err := store.Init(context.Background()); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("initializing store: %w", err)
		}
		opts = append(opts,
			pipeline.WithSnapshotStore(store),
			pipeline.WithVectorIndex(store),
		)
	}

	if cfg.Planner.APIKey != "" {
		var clientOpts []plan.ClientOption
		if cfg.Planner.BaseURL != "" {
			clientOpts = append(clientOpts, plan.WithBaseURL(cfg.Planner.BaseURL))
		}
		client := plan.NewClient(cfg.Planner.APIKey, cfg.Planner.Model, clientOpts...)
		opts = append(opts, pipeline.WithPlanner(client), pipeline.WithRanker(client))
	}

	if cfg.Embedding.Model != "" {
		opts = append(opts, pipeline.WithEmbedder(plan.NewOllamaEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.Model)))
	}

	return pipeline.New(opts...), store, nil
}
