// Package cli provides configuration management commands.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xtalbatch/xtalbatch/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage xtalbatch configuration",
		Long: `Configuration management commands for xtalbatch.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for xtalbatch.

The configuration is saved to the path given by --config, or
` + config.GetDefaultConfigPath() + `

Use --force to overwrite an existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := config.LoadConfigCSV(path)
			if err != nil {
				cfg = config.Default()
			}

			fmt.Fprintln(out, "xtalbatch Configuration Setup")
			fmt.Fprintln(out, "=============================")
			fmt.Fprintln(out, "Press Enter to keep the value in brackets.")
			fmt.Fprintln(out)

			if err := promptConfig(cmd.InOrStdin(), out, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveConfigCSV(cfg, path); err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Configuration saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// promptConfig asks for the cluster and queue settings.
func promptConfig(in io.Reader, out io.Writer, cfg *config.Config) error {
	reader := bufio.NewReader(in)
	ask := func(label string, dst *string) {
		fmt.Fprintf(out, "%s [%s]: ", label, *dst)
		line, _ := reader.ReadString('\n')
		if v := strings.TrimSpace(line); v != "" {
			*dst = v
		}
	}

	fmt.Fprintln(out, "Cluster (leave host empty to run jobs on this machine)")
	fmt.Fprintln(out, "------------------------------------------------------")
	ask("Cluster host", &cfg.ClusterHost)
	if cfg.ClusterHost != "" {
		ask("Cluster user", &cfg.ClusterUser)
		port := strconv.Itoa(cfg.ClusterPort)
		ask("SSH port", &port)
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q", port)
		}
		cfg.ClusterPort = p
		ask("SSH key (empty uses ssh-agent)", &cfg.SSHKey)
		ask("Known hosts file", &cfg.KnownHosts)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Queue")
	fmt.Fprintln(out, "-----")
	ask("Submit command", &cfg.SubmitCommand)
	ask("Job time limit", &cfg.SlurmTime)
	cpus := strconv.Itoa(cfg.SlurmCPUs)
	ask("CPUs per job", &cpus)
	if v, err := strconv.Atoi(cpus); err == nil && v > 0 {
		cfg.SlurmCPUs = v
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Refinement")
	fmt.Fprintln(out, "----------")
	ask("Default engine (refmac|buster)", &cfg.RefineEngine)
	ask("Sentinel file selecting buster", &cfg.SentinelFile)
	return nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigCSV(configPath())
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current Configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)
	for _, rec := range cfg.Records() {
		v := rec[1]
		if v == "" {
			v = "<not set>"
		}
		fmt.Fprintf(w, "  %-15s %s\n", rec[0]+":", v)
	}
	fmt.Fprintln(w)
	if cfg.Remote() {
		fmt.Fprintf(w, "Jobs are submitted over SSH to %s.\n", cfg.ClusterHost)
	} else {
		fmt.Fprintln(w, "Jobs are submitted on this machine.")
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), configPath())
		},
	}
}
