package cmd

import (
	"errors"
	"io/fs"
	"os/signal"
	"syscall"

	"wallpaperd/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
	cfg        *config.Config
)

// Execute runs the wallpaperd command line
func Execute() error {
	root := &cobra.Command{
		Use:          "wallpaperd",
		Short:        "Wallpaper menu backend: catalog sync, downloads and live photo state",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "YAML config file (optional)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(serveCmd(), syncCmd(), listCmd())
	return root.Execute()
}

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				cfg.HTTPServer.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			printBanner()
			return StartWebServer(ctx, app)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port for the web server")
	return cmd
}
