package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nodegate/internal/api"
	"nodegate/internal/config"
	"nodegate/internal/gateway"
	"nodegate/internal/logging"
	"nodegate/internal/tasks"
	"nodegate/internal/version"
)

var logger *logging.Logger

func initLogger(logFile string) {
	logConfig := &logging.Config{
		File:       logFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
	}

	if logConfig.File == "" {
		logConfig.File = "./logs/nodegate.log"
	}

	if err := logging.InitLogger(logConfig); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger = logging.GetGlobalLogger()
}

var rootCmd = &cobra.Command{
	Use:   "nodegate",
	Short: "nodegate - edge gateway for full-node deployments",
	Long: `nodegate fronts a full-node deployment: it renders and validates the
nginx site configuration, or serves the same routes itself - TLS
termination, HTTP-to-HTTPS redirect, Basic Auth, static files, and
reverse proxying to the supervisor panel and the API backend with
WebSocket upgrade support.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the embedded gateway",
	Long: `Run the embedded gateway with the configured mode. Production mode
terminates TLS on the HTTPS address, redirects plain HTTP, and requires
Basic Auth on every route. Docker mode serves plain HTTP with no auth.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		initLogger(cfg.LogFile)

		logger.Info("Starting nodegate %s in %s mode", version.Info(), cfg.Mode)

		gw, err := gateway.NewServer(cfg)
		if err != nil {
			logger.Error("Failed to create gateway: %v", err)
			os.Exit(1)
		}

		if err := gw.Start(); err != nil {
			logger.Error("Failed to start gateway: %v", err)
			os.Exit(1)
		}

		adminSrv := api.NewServer(cfg, gw)
		if err := adminSrv.Start(); err != nil {
			logger.Error("Failed to start admin API: %v", err)
			os.Exit(1)
		}

		var certMonitor *tasks.CertMonitor
		if cfg.IsProduction() {
			certMonitor = tasks.NewCertMonitor(cfg)
			certMonitor.Start()
		}

		// Set up signal handling
		ctx, cancel := context.WithCancel(context.Background())
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.Info("Received signal %v, initiating shutdown...", sig)
			cancel()
		}()

		// SIGHUP reloads the htpasswd file, like nginx reload
		hupChan := make(chan os.Signal, 1)
		signal.Notify(hupChan, syscall.SIGHUP)
		go func() {
			for range hupChan {
				logger.Info("Received SIGHUP, reloading credentials")
				if err := gw.ReloadAuth(); err != nil {
					logger.Error("Credential reload failed: %v", err)
				}
			}
		}()

		logger.Info("Gateway is running. Press Ctrl+C to stop.")
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if certMonitor != nil {
			certMonitor.Stop()
		}
		if err := adminSrv.Stop(shutdownCtx); err != nil {
			logger.Error("Admin API shutdown error: %v", err)
		}
		if err := gw.Stop(shutdownCtx); err != nil {
			logger.Error("Gateway shutdown error: %v", err)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(runNginxCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
