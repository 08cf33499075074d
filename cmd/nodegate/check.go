package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"nodegate/internal/config"
	"nodegate/internal/nginx"
	"nodegate/internal/utils"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and upstream reachability",
	Long: `Load and validate the configuration, render both site templates, and
probe the supervisor and API upstreams. Nothing is installed or
started.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Configuration invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration OK (mode: %s, host: %s)\n", cfg.Mode, cfg.NodeHost)

		if !utils.IsValidHost(cfg.NodeHost) {
			fmt.Printf("Warning: %q does not look like a public host name\n", cfg.NodeHost)
		}

		params, err := nginx.ParamsFromConfig(cfg)
		if err != nil {
			fmt.Printf("Template parameters invalid: %v\n", err)
			os.Exit(1)
		}
		for _, mode := range []string{config.ModeProduction, config.ModeDocker} {
			if _, err := nginx.Render(mode, params); err != nil {
				fmt.Printf("Rendering %s template failed: %v\n", mode, err)
				os.Exit(1)
			}
		}
		fmt.Println("Templates render cleanly")

		upstreams := map[string]string{
			"api": cfg.APIUpstream,
		}
		if cfg.IsProduction() {
			upstreams["supervisor"] = cfg.SupervisorUpstream
		}

		s := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
		s.Suffix = " Probing upstreams..."
		s.Start()
		failures := 0
		results := make(map[string]error, len(upstreams))
		for name, addr := range upstreams {
			conn, err := net.DialTimeout("tcp", addr, 3*time.Second)
			if err != nil {
				results[name] = err
				failures++
				continue
			}
			conn.Close()
			results[name] = nil
		}
		s.Stop()

		for name, err := range results {
			if err != nil {
				fmt.Printf("Upstream %s: UNREACHABLE (%v)\n", name, err)
			} else {
				fmt.Printf("Upstream %s: ok\n", name)
			}
		}

		if cfg.IsProduction() {
			if _, err := os.Stat(cfg.HtpasswdPath); err != nil {
				fmt.Printf("htpasswd file missing: %s\n", cfg.HtpasswdPath)
				failures++
			}
			if _, err := os.Stat(cfg.CertFile); err != nil {
				fmt.Printf("Certificate missing: %s\n", cfg.CertFile)
				failures++
			}
		}

		if failures > 0 {
			os.Exit(1)
		}
		fmt.Println("All checks passed")
	},
}
