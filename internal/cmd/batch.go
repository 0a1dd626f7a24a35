package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/facetgrid/internal/datasource"
	"github.com/MeKo-Tech/facetgrid/internal/pipeline"
	"github.com/MeKo-Tech/facetgrid/internal/worker"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Render every job of a YAML manifest",
	Long: `Batch renders the jobs listed in a manifest in parallel.

Options given on the command line or in the config file are the base every
job starts from; the manifest defaults and each job's options override them.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("manifest", "m", "", "YAML manifest listing the jobs")
	batchCmd.Flags().IntP("workers", "w", 0, "Number of jobs rendered in parallel (default: number of CPUs)")
	batchCmd.Flags().Bool("progress", true, "Show progress bar")
	batchCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some jobs fail")
	batchCmd.Flags().Bool("open", false, "Open every written image in the system viewer")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"batch.manifest", "manifest"},
		{"batch.workers", "workers"},
		{"batch.progress", "progress"},
		{"batch.allow_failures", "allow-failures"},
		{"batch.open", "open"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, batchCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifestPath := viper.GetString("batch.manifest")
	workers := viper.GetInt("batch.workers")
	showProgress := viper.GetBool("batch.progress")
	allowFailures := viper.GetBool("batch.allow_failures")
	view := viper.GetBool("batch.open")

	if logger == nil {
		initLogging()
	}

	if manifestPath == "" {
		return fmt.Errorf("--manifest is required")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	base := optionsFromConfig()
	if err := base.Validate(); err != nil {
		return err
	}

	manifest, err := pipeline.LoadManifest(manifestPath, base)
	if err != nil {
		return err
	}

	logger.Info("Starting batch render",
		"manifest", manifestPath,
		"jobs", len(manifest.Jobs),
		"workers", workers,
	)

	loader := datasource.DefaultLoaderConfig()
	loader.Logger = logger

	progress := worker.NewProgress(len(manifest.Jobs), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Runner:     &pipeline.JobRunner{Loader: loader, Logger: logger, Open: view},
		OnProgress: progress.Callback(),
	})

	results := pool.Run(cmd.Context(), manifest.Jobs)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Job failed", "job", r.Job.Name, "error", r.Err)
			continue
		}
		logger.Debug("Job finished",
			"job", r.Job.Name,
			"output", r.Output.Output,
			"tracks", r.Output.Tracks,
			"elapsed", r.Elapsed,
		)
	}

	logger.Info(progress.Summary())

	if failedCount > 0 {
		if allowFailures {
			logger.Warn("Some jobs failed, but continuing due to --allow-failures flag", "failed_count", failedCount)
			return nil
		}
		return fmt.Errorf("%d of %d jobs failed", failedCount, len(results))
	}

	return nil
}
