package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/raine/stockmeta/internal/app"
	"github.com/raine/stockmeta/internal/batch"
	"github.com/raine/stockmeta/internal/config"
	"github.com/raine/stockmeta/internal/export"
	"github.com/raine/stockmeta/internal/llm"
	"github.com/raine/stockmeta/internal/session"
	"github.com/raine/stockmeta/internal/stock"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	processPlatform    string
	processMode        string
	processQuery       string
	processOutDir      string
	processUserID      string
	processNoS3        bool
	processTitleMax    int
	processKeywordsMax int
	processDescMax     int
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Generate metadata for files and export a CSV",
	Long: `Process analyzes each file one at a time, pausing between calls, and
writes the results as CSV under the platform's export folder. Files with an
unsupported type or size are skipped with a warning.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processPlatform, "platform", "p", "general", "target platform: general, freepik, shutterstock, adobestock")
	processCmd.Flags().StringVarP(&processMode, "mode", "m", "metadata", "generation mode: metadata or prompt")
	processCmd.Flags().StringVarP(&processQuery, "query", "q", "", "extra instructions for the model")
	processCmd.Flags().StringVarP(&processOutDir, "out", "o", "", "export directory (default from config)")
	processCmd.Flags().StringVar(&processUserID, "user", "", "charge credits to this user id")
	processCmd.Flags().BoolVar(&processNoS3, "no-s3", false, "skip the S3 upload even when configured")
	processCmd.Flags().IntVar(&processTitleMax, "title-max", 0, "maximum title words")
	processCmd.Flags().IntVar(&processKeywordsMax, "keywords-max", 0, "maximum keywords")
	processCmd.Flags().IntVar(&processDescMax, "description-max", 0, "maximum description words")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	platform, err := stock.ParsePlatform(processPlatform)
	if err != nil {
		return err
	}
	mode, err := stock.ParseMode(processMode)
	if err != nil {
		return err
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		return fmt.Errorf("missing required config: %s (run `stockmeta setup`)", strings.Join(missing, ", "))
	}

	targets := cfg.Targets
	if processTitleMax > 0 {
		targets.TitleMaxWords = processTitleMax
	}
	if processKeywordsMax > 0 {
		targets.KeywordMax = processKeywordsMax
	}
	if processDescMax > 0 {
		targets.DescriptionMaxWords = processDescMax
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	outDir := processOutDir
	if outDir == "" {
		outDir = cfg.ExportDir
	}
	sinks := []export.Sink{export.DirSink{Root: outDir}}
	if a.S3 != nil && !processNoS3 {
		sinks = append(sinks, a.S3)
	}

	job := processJob{
		analyzer: a.Analyzer,
		sessions: a.Sessions,
		sinks:    sinks,
		opts: batch.Options{
			Platform:    platform,
			Mode:        mode,
			Targets:     targets,
			Instruction: processQuery,
			UserID:      processUserID,
		},
		out: cmd.OutOrStdout(),
	}
	if processUserID != "" {
		job.gate = a.Credits
	}

	report, err := job.run(ctx, args)
	printReport(cmd.OutOrStdout(), report)
	return err
}

// processJob runs one CLI batch: load files, analyze, export.
type processJob struct {
	analyzer llm.Analyzer
	gate     batch.CreditGate
	sessions session.Store
	sinks    []export.Sink
	opts     batch.Options
	out      io.Writer
	now      func() time.Time
}

type processReport struct {
	Skipped   []string
	Summary   batch.Summary
	Failed    []stock.Image
	Locations []string
}

func (j *processJob) run(ctx context.Context, paths []string) (*processReport, error) {
	report := &processReport{}
	q := batch.NewQueue()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to read file")
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if _, err := q.Add(filepath.Base(path), data, ""); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("file rejected")
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", path, err))
		}
	}
	if q.Len() == 0 {
		return report, errors.New("no files to process")
	}

	tracker := session.NewTracker(j.sessions, j.opts.UserID, string(j.opts.Platform))
	tracker.Start(ctx)
	defer tracker.End(context.WithoutCancel(ctx))

	bar := progressbar.NewOptions(q.Len(),
		progressbar.OptionSetWriter(j.out),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(j.out) }),
	)

	opts := j.opts
	opts.OnUpdate = func(img stock.Image) {
		switch img.Status {
		case stock.StatusProcessing:
			bar.Describe(img.Name)
		case stock.StatusComplete:
			tracker.ImageProcessed(ctx)
			_ = bar.Add(1)
		case stock.StatusError:
			report.Failed = append(report.Failed, img)
			_ = bar.Add(1)
		}
	}

	summary, runErr := batch.NewProcessor(j.analyzer, j.gate).Run(ctx, q, opts)
	report.Summary = summary
	_ = bar.Finish()

	completed := q.Completed()
	if len(completed) == 0 {
		return report, runErr
	}

	now := time.Now
	if j.now != nil {
		now = j.now
	}
	for _, sink := range j.sinks {
		location, err := export.CSV(context.WithoutCancel(ctx), sink, j.opts.Platform, completed, now())
		if err != nil {
			log.Error().Err(err).Msg("export failed")
			runErr = errors.Join(runErr, err)
			continue
		}
		report.Locations = append(report.Locations, location)
	}
	return report, runErr
}

func printReport(w io.Writer, r *processReport) {
	if r == nil {
		return
	}
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	for _, s := range r.Skipped {
		fmt.Fprintln(w, warnStyle.Render("skipped "+s))
	}
	for _, img := range r.Failed {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("failed %s: %s", img.Name, img.Error)))
	}
	fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("✓ %d completed, %d failed", r.Summary.Completed, r.Summary.Failed)))
	if r.Summary.CostUSD > 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  cost $%.4f", r.Summary.CostUSD)))
	}
	for _, loc := range r.Locations {
		fmt.Fprintln(w, dimStyle.Render("  "+loc))
	}
}
