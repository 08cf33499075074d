package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"nodegate/internal/config"
	"nodegate/internal/nginx"
)

var (
	renderMode string
	renderOut  string
	siteName   string
)

func init() {
	renderCmd.Flags().StringVar(&renderMode, "mode", "", "Override GATEWAY_MODE (production or docker)")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "Write to file instead of stdout")
	installCmd.Flags().StringVar(&renderMode, "mode", "", "Override GATEWAY_MODE (production or docker)")
	installCmd.Flags().StringVar(&siteName, "name", "node", "Site file name under sites-available/sites-enabled")
	runNginxCmd.Flags().StringVar(&renderMode, "mode", "", "Override GATEWAY_MODE (production or docker)")
	runNginxCmd.Flags().StringVar(&siteName, "name", "node", "Site file name under sites-available/sites-enabled")
}

func renderSite() ([]byte, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if renderMode != "" {
		cfg.Mode = renderMode
	}

	params, err := nginx.ParamsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	src, err := nginx.Render(cfg.Mode, params)
	if err != nil {
		return nil, nil, err
	}
	return src, cfg, nil
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the nginx site configuration",
	Long: `Render the nginx site configuration for the configured mode,
substituting the node host, install directory, and upstream ports.

Example:
  nodegate render                       # production template to stdout
  nodegate render --mode docker         # docker template
  nodegate render --out /tmp/node.conf  # write to a file`,
	Run: func(cmd *cobra.Command, args []string) {
		src, _, err := renderSite()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if renderOut == "" {
			fmt.Print(string(src))
			return
		}
		if err := os.WriteFile(renderOut, src, 0644); err != nil {
			fmt.Printf("Error writing %s: %v\n", renderOut, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", renderOut)
	},
}

var runNginxCmd = &cobra.Command{
	Use:   "run-nginx",
	Short: "Install the site and run nginx in the foreground",
	Long: `Render and install the site configuration, then exec nginx with
"daemon off;" so a process supervisor can manage it directly.`,
	Run: func(cmd *cobra.Command, args []string) {
		src, _, err := renderSite()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if err := nginx.WriteSite(siteName, src); err != nil {
			fmt.Printf("Error installing site: %v\n", err)
			os.Exit(1)
		}
		if err := nginx.Validate(); err != nil {
			fmt.Printf("nginx rejected the configuration: %v\n", err)
			os.Exit(1)
		}
		if err := nginx.Run(); err != nil {
			fmt.Printf("nginx exited: %v\n", err)
			os.Exit(1)
		}
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Render and install the nginx site, then validate it",
	Long: `Render the site configuration, install it under the nginx
sites-available and sites-enabled directories, and run "nginx -t"
against the result.`,
	Run: func(cmd *cobra.Command, args []string) {
		src, _, err := renderSite()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if err := nginx.WriteSite(siteName, src); err != nil {
			fmt.Printf("Error installing site: %v\n", err)
			os.Exit(1)
		}

		s := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
		s.Suffix = " Validating nginx configuration..."
		s.Start()
		err = nginx.Validate()
		s.Stop()

		if err != nil {
			fmt.Printf("nginx rejected the configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Installed site %q and validated configuration\n", siteName)
	},
}
