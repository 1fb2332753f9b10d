package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/xtalbatch/xtalbatch/internal/ligand"
	"github.com/xtalbatch/xtalbatch/internal/submit"
)

// newRestraintsCmd creates the 'restraints' command.
func newRestraintsCmd() *cobra.Command {
	var opts ligand.Options

	cmd := &cobra.Command{
		Use:   "restraints",
		Short: "Generate ligand restraints from a CSV of SMILES",
		Long: `Generate restraint dictionaries for every row of a CSV file formatted as
"sample_ID","ligand_ID","smiles" (comma or semicolon separated).

Each ligand is written to <project>/<sample_ID>[/<subdirectory>]/<ligand_ID>.cif.
Existing dictionaries are kept unless --overwrite is given. With --cluster a
queue script <program>.sh is written next to the output and submitted;
otherwise the program runs on this machine.

Example:
  xtalbatch restraints -p /data/proj -l ligands.csv -r acedrg -s compound -m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			rep, err := ligand.Check(opts, logger)
			if err != nil {
				return fmt.Errorf("checks failed, see messages above: %w", err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sub := submit.NewSubmitter(submit.NewRunner(cfg), cfg.SubmitCommand, logger)
			gen := ligand.NewGenerator(cfg, submit.LocalRunner{}, sub, logger)

			res, err := gen.Run(GetContext(), opts, rep.Rows)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ran %d, submitted %d, skipped %d, failed %d\n",
				len(res.Ran), len(res.Submitted), len(res.Skipped), len(res.Failed))
			if len(res.Failed) > 0 {
				keys := make([]string, 0, len(res.Failed))
				for k := range res.Failed {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "  %s: %v\n", k, res.Failed[k])
				}
				return fmt.Errorf("%d ligand(s) failed", len(res.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.ProjectDir, "project-directory", "p", "", "Project directory")
	cmd.Flags().StringVarP(&opts.CSV, "ligand-csv", "l", "", "Ligand CSV file (sample_ID, ligand_ID, smiles)")
	cmd.Flags().StringVarP(&opts.Program, "restraints-program", "r", "", "Restraints program: acedrg, grade or elbow")
	cmd.Flags().StringVarP(&opts.Subdirectory, "subdirectory", "s", "", "Subdirectory of the sample folder for ligand files, e.g. compound")
	cmd.Flags().BoolVarP(&opts.Cluster, "cluster", "m", false, "Submit queue scripts instead of running locally")
	cmd.Flags().BoolVarP(&opts.Overwrite, "overwrite", "o", false, "Overwrite existing restraint files")
	cmd.MarkFlagRequired("project-directory")
	cmd.MarkFlagRequired("ligand-csv")
	cmd.MarkFlagRequired("restraints-program")
	return cmd
}
