package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/makeasinger/samples/internal/config"
	"github.com/makeasinger/samples/internal/ingest"
	"github.com/makeasinger/samples/internal/logging"
	"github.com/makeasinger/samples/internal/model"
	"github.com/makeasinger/samples/internal/parser"
)

type ingestFlags struct {
	genre       string
	artist      string
	failureLog  string
	concurrency int
	delay       time.Duration
	recursive   bool
	dryRun      bool
}

func ingestCommand(g *globals) *cobra.Command {
	f := &ingestFlags{}

	cmd := &cobra.Command{
		Use:   "ingest [directory]",
		Short: "Ingest every audio file in a directory",
		Long: "Parse, transcode, analyze, upload and catalog each audio file in the directory. " +
			"A failing file never stops the batch; failures are written to the failure log.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyIngestFlags(cmd, g.cfg, f)
			if f.dryRun {
				return dryRun(cmd, g.cfg, args[0], f)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, cmd, g.cfg, args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.genre, "genre", "g", "", "Genre applied to every file (overrides inference)")
	cmd.Flags().StringVarP(&f.artist, "artist", "a", "", "Artist applied to every file")
	cmd.Flags().StringVar(&f.failureLog, "failure-log", "", "Path of the JSON failure log (default from config)")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "c", 0, "Files processed at once (default from config)")
	cmd.Flags().DurationVar(&f.delay, "delay", 0, "Pause between windows, e.g. 500ms (default from config)")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Only print the metadata parsed from each filename")

	return cmd
}

// applyIngestFlags copies explicitly set flags over the loaded config
func applyIngestFlags(cmd *cobra.Command, cfg *config.Config, f *ingestFlags) {
	if cmd.Flags().Changed("concurrency") {
		cfg.Pipeline.Concurrency = f.concurrency
	}
	if cmd.Flags().Changed("failure-log") {
		cfg.Pipeline.FailureLog = f.failureLog
	}
}

func runIngest(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dir string, f *ingestFlags) error {
	log := logging.Zone("samples/cli")

	app, err := Build(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	files, err := ingest.LoadDirectory(dir, cfg.Pipeline.Extensions, f.recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.WithField("directory", dir).Warn("no audio files found")
		return nil
	}

	opts := ingest.BatchOptions{
		Genre:  f.genre,
		Artist: f.artist,
	}
	if cmd.Flags().Changed("delay") {
		opts.BatchDelay = &f.delay
	}
	opts.OnProgress = func(p ingest.Progress) {
		log.WithFields(logrus.Fields{
			"window":     fmt.Sprintf("%d/%d", p.Window, p.Windows),
			"processed":  fmt.Sprintf("%d/%d", p.Processed, p.Total),
			"successful": p.Successful,
			"failed":     p.Failed,
		}).Info("progress")
	}

	start := time.Now()
	results, err := app.Pipeline.IngestBatch(ctx, files, opts)
	if err != nil {
		return err
	}

	summary := ingest.Summarize(results, time.Since(start))
	if err := ingest.WriteFailureLog(cfg.Pipeline.FailureLog, summary.Failures); err != nil {
		log.WithError(err).Error("could not write failure log")
	}

	printSummary(cmd, summary, cfg.Pipeline.FailureLog)
	if ctx.Err() != nil {
		return fmt.Errorf("ingest interrupted: %w", ctx.Err())
	}
	return nil
}

func printSummary(cmd *cobra.Command, s model.BatchSummary, failureLog string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Successful: %d\nFailed: %d\n", s.Successful, s.Failed)
	for _, fl := range s.Failures {
		fmt.Fprintf(out, "  %s [%s] %s\n", fl.Filename, fl.Kind, fl.Error)
	}
	if s.Failed > 0 && failureLog != "" {
		fmt.Fprintf(out, "Failure log: %s\n", failureLog)
	}
}

// dryRun prints one JSON line of parsed metadata per file
func dryRun(cmd *cobra.Command, cfg *config.Config, dir string, f *ingestFlags) error {
	paths, err := ingest.Enumerate(dir, cfg.Pipeline.Extensions, f.recursive)
	if err != nil {
		return err
	}

	p := parser.New(parserOptions(cfg))

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, path := range paths {
		in, err := ingest.InputFromFile(path)
		if err != nil {
			return err
		}
		meta := p.ParseWithGenre(in.Filename, f.genre)
		if err := enc.Encode(struct {
			File string `json:"file"`
			model.ParsedMetadata
		}{in.Filename, meta}); err != nil {
			return err
		}
	}
	return nil
}
