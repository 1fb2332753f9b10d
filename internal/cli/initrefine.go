package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xtalbatch/xtalbatch/internal/initrefine"
	"github.com/xtalbatch/xtalbatch/internal/submit"
)

// newInitRefineCmd creates the 'init-refine' command.
func newInitRefineCmd() *cobra.Command {
	var opts initrefine.Options

	cmd := &cobra.Command{
		Use:   "init-refine",
		Short: "Initial refinement of autoprocessing results",
		Long: `For every sample folder in the processing directory: pick the
autoprocessing result with the best high-resolution limit, link it as
process.mtz (and its log as process.log) into the project sample folder,
choose a reference model from --pdbdir with the same point group and a unit
cell volume within 10%, and write the initial refinement script.

Reference models need a valid CRYST1 record.

Example:
  xtalbatch init-refine -i /data/process -o /data/proj -p models -a autoproc -r dimple --submit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var sub initrefine.Submitter
			if opts.Submit {
				sub = submit.NewSubmitter(submit.NewRunner(cfg), cfg.SubmitCommand, logger)
			}
			results, err := initrefine.NewRunner(cfg, sub, logger).Run(GetContext(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				switch {
				case r.Err != nil:
					failed++
					fmt.Fprintf(out, "%-20s failed: %v\n", r.Sample, r.Err)
				case r.Skipped != "":
					fmt.Fprintf(out, "%-20s skipped: %s\n", r.Sample, r.Skipped)
				default:
					state := "written"
					if r.Submitted {
						state = "submitted"
					}
					fmt.Fprintf(out, "%-20s %.2f A  %s  %s\n", r.Sample, r.Resolution, r.PDB, state)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d sample(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.ProcessDir, "input", "i", "", "Processing directory with one folder per sample")
	cmd.Flags().StringVarP(&opts.ProjectDir, "output", "o", "", "Project directory")
	cmd.Flags().StringVarP(&opts.PDBDir, "pdbdir", "p", "", "Directory with reference models")
	cmd.Flags().StringVarP(&opts.Autoproc, "autoproc", "a", "autoproc", "Autoprocessing pipeline: "+strings.Join(initrefine.AutoprocNames(), ", "))
	cmd.Flags().StringVarP(&opts.Refine, "refine", "r", "dimple", "Initial refinement pipeline: dimple or pipedream")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Redo samples that already have results and replace links")
	cmd.Flags().BoolVar(&opts.Submit, "submit", false, "Submit the scripts to the queue")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagRequired("pdbdir")
	return cmd
}
