// Command geoknn runs the geoknn HTTP service.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/hupe1980/geoknn/internal/config"
	"github.com/hupe1980/geoknn/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "geoknn",
		Short:        "Geospatial k-nearest-neighbor service",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			gin.SetMode(cfg.Server.Mode)

			srv, err := server.New(server.Options{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				IndexOptions:    cfg.Index.Options(),
				Logger:          cfg.Log.Logger(),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			v := version
			if info, ok := debug.ReadBuildInfo(); ok && v == "dev" && info.Main.Version != "" {
				v = info.Main.Version
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
		},
	}
}
