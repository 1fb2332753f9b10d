package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xtalbatch/xtalbatch/internal/discovery"
	"github.com/xtalbatch/xtalbatch/internal/host"
	"github.com/xtalbatch/xtalbatch/internal/navigator"
	"github.com/xtalbatch/xtalbatch/internal/pathutil"
	"github.com/xtalbatch/xtalbatch/internal/pdbheader"
	"github.com/xtalbatch/xtalbatch/internal/progress"
	"github.com/xtalbatch/xtalbatch/internal/project"
)

// DefaultProjectFile is the registry file name used when --project is not
// given.
const DefaultProjectFile = "xtalbatch.json"

// loadOrNewProject loads path, or returns an empty registry when the file
// does not exist yet.
func loadOrNewProject(path string) (*project.Registry, error) {
	reg, err := project.Load(path)
	if err == nil {
		return reg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return project.New(), nil
	}
	return nil, err
}

// newScanCmd creates the 'scan' command.
func newScanCmd() *cobra.Command {
	var (
		projectFile string
		projectDir  string
		settings    project.Settings
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover datasets in a project directory",
		Long: `Walk <project-directory>/<glob>/<pdb> and record one dataset per sample
directory, pairing the reflection, free-set and ligand restraint files found
next to each model. An existing project file is updated in place: known
samples keep their position and user-set fields.

Example:
  xtalbatch scan -p /data/visitor/proj --glob 'x0*' -P proj.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			reg, err := loadOrNewProject(projectFile)
			if err != nil {
				return err
			}

			// Flags override what the project file had.
			flags := cmd.Flags()
			if projectDir != "" {
				abs, err := pathutil.ResolveAbsolutePath(projectDir)
				if err != nil {
					return err
				}
				reg.Settings.ProjectDirectory = abs
			}
			if reg.Settings.ProjectDirectory == "" {
				return fmt.Errorf("project directory is required (--project-directory)")
			}
			for name, dst := range map[string]*string{
				"glob":       &reg.Settings.GlobString,
				"pdb":        &reg.Settings.ModelFilename,
				"mtz":        &reg.Settings.ReflectionFile,
				"mtz-free":   &reg.Settings.FreeSetFile,
				"ligand-cif": &reg.Settings.LigandGlob,
			} {
				if flags.Changed(name) {
					v, _ := flags.GetString(name)
					*dst = v
				}
			}

			w := discovery.NewWalker(logger, progress.ForTerminal())
			res, err := w.Scan(GetContext(), reg)
			if err != nil {
				return err
			}

			saved, err := reg.Save(projectFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found %d model(s): %d new, %d updated, %d skipped\n",
				res.TotalCount, len(res.Created), len(res.Updated), len(res.Skipped))
			fmt.Fprintf(cmd.OutOrStdout(), "Project saved to %s\n", saved)
			return nil
		},
	}

	d := project.Defaults()
	cmd.Flags().StringVarP(&projectFile, "project", "P", DefaultProjectFile, "Project file")
	cmd.Flags().StringVarP(&projectDir, "project-directory", "p", "", "Project directory with one folder per sample")
	cmd.Flags().StringVar(&settings.GlobString, "glob", d.GlobString, "Glob matching sample folders")
	cmd.Flags().StringVar(&settings.ModelFilename, "pdb", d.ModelFilename, "Model file name")
	cmd.Flags().StringVar(&settings.ReflectionFile, "mtz", d.ReflectionFile, "Reflection file name")
	cmd.Flags().StringVar(&settings.FreeSetFile, "mtz-free", d.FreeSetFile, "Free-set file name")
	cmd.Flags().StringVar(&settings.LigandGlob, "ligand-cif", d.LigandGlob, "Ligand restraint glob")

	return cmd
}

// newShowCmd creates the 'show' command.
func newShowCmd() *cobra.Command {
	var projectFile string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the datasets of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := project.Load(projectFile)
			if err != nil {
				return err
			}
			return printDatasets(cmd.OutOrStdout(), reg)
		},
	}
	cmd.Flags().StringVarP(&projectFile, "project", "P", DefaultProjectFile, "Project file")
	return cmd
}

func printDatasets(w io.Writer, reg *project.Registry) error {
	if reg.Len() == 0 {
		fmt.Fprintln(w, "No datasets in project.")
		return nil
	}
	fmt.Fprintf(w, "Project directory: %s\n\n", reg.Settings.ProjectDirectory)
	fmt.Fprintf(w, "%4s  %-20s %-12s %6s %7s %7s  %-8s %s\n", "#", "SAMPLE", "SPACEGROUP", "RESO", "RWORK", "RFREE", "LIGAND", "STATUS")
	for i, d := range reg.Datasets() {
		h, _ := pdbheader.Read(d.Model)
		lig := "-"
		if d.LigandRestraints != "" {
			lig = filepath.Base(d.LigandRestraints)
		}
		fmt.Fprintf(w, "%4d  %-20s %-12s %6s %7s %7s  %-8s %s\n",
			i+1, d.SampleID, dash(h.SpaceGroup), dash(h.ResolutionHigh), dash(h.RWork), dash(h.RFree), lig, d.Status)
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// newOpenCmd creates the 'open' command.
func newOpenCmd() *cobra.Command {
	var (
		projectFile string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "open <index|sample>",
		Short: "Emit Coot commands loading one dataset",
		Long: `Write the Coot Python commands that load the model, maps and ligand of one
dataset. The dataset is given by its 1-based position or its sample id.

Example:
  xtalbatch open 3 -o load.py && coot --script load.py`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := project.Load(projectFile)
			if err != nil {
				return err
			}
			idx, err := resolveIndex(reg, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}

			nav := navigator.New(reg, host.NewCootScript(out), GetLogger())
			if err := nav.Goto(idx); err != nil {
				return err
			}
			l := nav.Labels()
			GetLogger().Info().
				Str("sample", l.Sample).
				Str("position", l.Index+"/"+l.Total).
				Str("resolution", l.Resolution).
				Str("rfree", l.RFree).
				Msg("Opened dataset")
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectFile, "project", "P", DefaultProjectFile, "Project file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write commands to this file instead of stdout")
	return cmd
}

// resolveIndex accepts a 1-based position or a sample id and returns the
// 0-based index.
func resolveIndex(reg *project.Registry, arg string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > reg.Len() {
			return 0, fmt.Errorf("position %d out of range 1-%d", n, reg.Len())
		}
		return n - 1, nil
	}
	if i := reg.IndexOf(arg); i >= 0 {
		return i, nil
	}
	return 0, fmt.Errorf("no dataset with sample id %q", arg)
}
