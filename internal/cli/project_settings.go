package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xtalbatch/xtalbatch/internal/project"
)

// newProjectCmd creates the 'project' command group.
func newProjectCmd() *cobra.Command {
	var projectFile string

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect and edit a project file",
		Long: `Project file commands.

Commands:
  settings  - Print the discovery settings
  revert    - Reset the settings to their defaults (keeps the project directory)
  status    - Set the status of a dataset
  tag       - Set the free-text tag of a dataset`,
	}
	cmd.PersistentFlags().StringVarP(&projectFile, "project", "P", DefaultProjectFile, "Project file")

	cmd.AddCommand(&cobra.Command{
		Use:   "settings",
		Short: "Print the discovery settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := project.Load(projectFile)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), reg.Settings)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revert",
		Short: "Reset the settings to their defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := project.Load(projectFile)
			if err != nil {
				return err
			}
			reg.Settings.RevertToDefaults()
			if _, err := reg.Save(projectFile); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), reg.Settings)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status <sample> <status>",
		Short: "Set the status of a dataset",
		Long: `Set the status of a dataset. The status is one of the categories below, or
just its leading number:
  ` + strings.Join(project.StatusCategories(), "\n  "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			return editDataset(projectFile, args[0], func(d *project.Dataset) {
				d.Status = status
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tag <sample> <tag>",
		Short: "Set the free-text tag of a dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editDataset(projectFile, args[0], func(d *project.Dataset) {
				d.Tag = args[1]
			})
		},
	})

	return cmd
}

func printSettings(w io.Writer, s project.Settings) {
	fmt.Fprintf(w, "  %-19s %s\n", "project_directory:", dash(s.ProjectDirectory))
	fmt.Fprintf(w, "  %-19s %s\n", "glob_string:", s.GlobString)
	fmt.Fprintf(w, "  %-19s %s\n", "pdb:", s.ModelFilename)
	fmt.Fprintf(w, "  %-19s %s\n", "mtz:", s.ReflectionFile)
	fmt.Fprintf(w, "  %-19s %s\n", "mtz_free:", s.FreeSetFile)
	fmt.Fprintf(w, "  %-19s %s\n", "ligand_cif:", s.LigandGlob)
}

// parseStatus accepts a full category or its number ("-1" .. "3").
func parseStatus(arg string) (string, error) {
	for _, c := range project.StatusCategories() {
		if arg == c || arg == strings.SplitN(c, " ", 2)[0] {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", arg)
}

func editDataset(projectFile, sample string, edit func(*project.Dataset)) error {
	reg, err := project.Load(projectFile)
	if err != nil {
		return err
	}
	d, ok := reg.Get(sample)
	if !ok {
		return fmt.Errorf("no dataset with sample id %q", sample)
	}
	edit(d)
	_, err = reg.Save(projectFile)
	return err
}
