package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/facetgrid/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the render API over HTTP",
	Long: `Serve accepts GPX uploads on POST /api/v1/render and answers with the
rendered grid as a base64 PNG. Render options given here are the defaults for
every request.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := server.DefaultConfig()
	serveCmd.Flags().String("addr", defaults.Addr, "Listen address (host:port)")
	serveCmd.Flags().Int("max-upload-mb", defaults.MaxUploadMB, "Per-file upload limit in megabytes")
	serveCmd.Flags().Int("max-resolution", defaults.MaxResolution, "Largest image edge a request may ask for")
	serveCmd.Flags().String("pyramid", "", "MBTiles pyramid to serve under /api/v1/pyramid")
	serveCmd.Flags().String("cache-control", defaults.CacheControl, "Cache-Control header for served tiles")
	serveCmd.Flags().Duration("shutdown-timeout", defaults.ShutdownTimeout, "Grace period for in-flight requests on shutdown")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"serve.addr", "addr"},
		{"serve.max_upload_mb", "max-upload-mb"},
		{"serve.max_resolution", "max-resolution"},
		{"serve.pyramid", "pyramid"},
		{"serve.cache_control", "cache-control"},
		{"serve.shutdown_timeout", "shutdown-timeout"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, serveCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	if !viper.GetBool("verbose") {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.New(server.Config{
		Addr:            viper.GetString("serve.addr"),
		MaxUploadMB:     viper.GetInt("serve.max_upload_mb"),
		MaxResolution:   viper.GetInt("serve.max_resolution"),
		Defaults:        optionsFromConfig(),
		PyramidPath:     viper.GetString("serve.pyramid"),
		CacheControl:    viper.GetString("serve.cache_control"),
		ShutdownTimeout: viper.GetDuration("serve.shutdown_timeout"),
	}, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	return srv.Run(cmd.Context())
}
