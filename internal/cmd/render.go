package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/facetgrid/internal/datasource"
	"github.com/MeKo-Tech/facetgrid/internal/pipeline"
)

var renderCmd = &cobra.Command{
	Use:   "render [flags] TRACK.gpx...",
	Short: "Render GPX tracks into one grid image",
	Long: `Render draws every given GPX file into its own grid cell.

With --output the image is written to that file (.png, .jpg, .jpeg or .gif).
Without it the PNG is printed to stdout as base64.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("output", "o", "", "Image file to write (default: base64 PNG on stdout)")
	renderCmd.Flags().Bool("open", false, "Open the written image in the system viewer")
	renderCmd.Flags().String("pyramid", "", "Also write the image as an MBTiles tile pyramid")
	renderCmd.Flags().Int("load-workers", datasource.DefaultLoaderConfig().Workers, "GPX files parsed in parallel")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"render.output", "output"},
		{"render.open", "open"},
		{"render.pyramid", "pyramid"},
		{"render.load_workers", "load-workers"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, renderCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	output := viper.GetString("render.output")
	view := viper.GetBool("render.open")
	pyramid := viper.GetString("render.pyramid")

	if logger == nil {
		initLogging()
	}

	opts := optionsFromConfig()
	if err := opts.Validate(); err != nil {
		return err
	}

	loader := datasource.DefaultLoaderConfig()
	loader.Workers = viper.GetInt("render.load_workers")
	loader.Logger = logger

	logger.Info("Starting render",
		"tracks", len(args),
		"resolution", opts.Resolution,
		"output", output,
		"pyramid", pyramid,
	)

	if output == "" {
		if pyramid != "" {
			return fmt.Errorf("--pyramid requires --output")
		}

		tracks, err := datasource.LoadFiles(cmd.Context(), args, loader)
		if err != nil {
			return fmt.Errorf("failed to load tracks: %w", err)
		}

		image, err := pipeline.RenderTrackGrid(tracks, opts, logger)
		if err != nil {
			return fmt.Errorf("failed to render grid: %w", err)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), image)
		return err
	}

	runner := &pipeline.JobRunner{Loader: loader, Logger: logger, Open: view}
	res, err := runner.Run(cmd.Context(), pipeline.Job{
		Name:    jobName(output),
		Inputs:  args,
		Output:  output,
		Pyramid: pyramid,
		Options: opts,
	})
	if err != nil {
		return fmt.Errorf("failed to render grid: %w", err)
	}

	logger.Info("Grid rendered",
		"output", res.Output,
		"tracks", res.Tracks,
		"grid_side", res.GridSide,
		"pyramid", res.Pyramid,
	)
	return nil
}

// jobName names a single render after its output file ("out/summer.png" -> "summer").
func jobName(output string) string {
	base := filepath.Base(output)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
