package cli

import (
	"github.com/spf13/cobra"

	"github.com/xtalbatch/xtalbatch/internal/gui"
)

// newGUICmd creates the 'gui' command.
func newGUICmd() *cobra.Command {
	var opts gui.Options

	cmd := &cobra.Command{
		Use:   "gui",
		Short: "Open the graphical navigator",
		Long: `Open the navigator window: read datasets from a project directory, step
through them with <<< and >>>, place and merge ligands, save model versions
and submit refinements of the dataset on screen.

Loading a dataset produces Coot Python commands, written to stdout or the
file given by --script.

Example:
  xtalbatch gui -P proj.json --script /tmp/coot-commands.py`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigFile = cfgFile
			opts.Debug = verbose || debug
			return gui.LaunchGUI(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ProjectFile, "project", "P", "", "Project file to load at startup")
	cmd.Flags().StringVar(&opts.ScriptOut, "script", "", "Write Coot commands to this file instead of stdout")
	return cmd
}
