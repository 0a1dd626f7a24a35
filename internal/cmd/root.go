package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/facetgrid/internal/pipeline"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "facetgrid",
	Short: "Render GPS tracks as a grid of small multiples",
	Long: `FacetGrid draws every GPS track of a collection into its own cell of a square grid.

Each track is projected onto slippy-map tiles at a zoom picked from its extent,
scaled so the widest track fills its cell, and centered. The result is a single
image (or base64 PNG) that can optionally be cut into an MBTiles pyramid.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.String("log-format", "text", "Log format (text, json)")

	defaults := pipeline.DefaultOptions()
	flags.Int("resolution", defaults.Resolution, "Edge length of the square output image in pixels")
	flags.Float64("line-thickness", defaults.LineThickness, "Stroke width of the tracks in pixels")
	flags.Int("zoom-budget", defaults.ZoomBudget, "Tile span a track may cover before a lower zoom is chosen")
	flags.Bool("grid", defaults.GridLines, "Draw grid lines between cells")
	flags.String("background", defaults.Background, "Background color (#rgb, #rrggbb, rgb(r,g,b))")
	flags.String("foreground", defaults.Foreground, "Track color")
	flags.String("grid-color", defaults.GridColor, "Grid line color")
	flags.String("title", defaults.Title, "Title stored with the image")
	flags.Bool("caption", defaults.Caption, "Draw the title as a caption")
	flags.Bool("no-center", defaults.NoCenter, "Place tracks at the top-left of their cell instead of centering them")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"verbose", "verbose"},
		{"log_format", "log-format"},
		{"options.resolution", "resolution"},
		{"options.line_thickness", "line-thickness"},
		{"options.zoom_budget", "zoom-budget"},
		{"options.grid", "grid"},
		{"options.background", "background"},
		{"options.foreground", "foreground"},
		{"options.grid_color", "grid-color"},
		{"options.title", "title"},
		{"options.caption", "caption"},
		{"options.no_center", "no-center"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, flags.Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("FACETGRID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// optionsFromConfig assembles render options from flags, environment and config file.
func optionsFromConfig() pipeline.Options {
	return pipeline.Options{
		Resolution:    viper.GetInt("options.resolution"),
		LineThickness: viper.GetFloat64("options.line_thickness"),
		ZoomBudget:    viper.GetInt("options.zoom_budget"),
		GridLines:     viper.GetBool("options.grid"),
		Background:    viper.GetString("options.background"),
		Foreground:    viper.GetString("options.foreground"),
		GridColor:     viper.GetString("options.grid_color"),
		Title:         viper.GetString("options.title"),
		Caption:       viper.GetBool("options.caption"),
		NoCenter:      viper.GetBool("options.no_center"),
	}
}
