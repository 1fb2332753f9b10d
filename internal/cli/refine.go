package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xtalbatch/xtalbatch/internal/project"
	"github.com/xtalbatch/xtalbatch/internal/refine"
	"github.com/xtalbatch/xtalbatch/internal/submit"
)

// newRefineCmd creates the 'refine' command.
func newRefineCmd() *cobra.Command {
	var (
		projectFile string
		all         bool
		noSubmit    bool
		engine      string
	)

	cmd := &cobra.Command{
		Use:   "refine [sample...]",
		Short: "Write and submit refinement jobs",
		Long: `Write a refinement script for each given sample (or every sample with --all)
into <project>/scripts and submit it with the configured queue command.

The engine is the dataset's refinement_program if set, buster if the sample
folder contains the sentinel file (default .use_buster), otherwise the
configured refine_engine. Each job gets the next Refine_<n> folder.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			if !all && len(args) == 0 {
				return fmt.Errorf("give sample ids or --all")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := project.Load(projectFile)
			if err != nil {
				return err
			}

			var datasets []*project.Dataset
			if all {
				datasets = reg.Datasets()
			} else {
				for _, id := range args {
					d, ok := reg.Get(id)
					if !ok {
						return fmt.Errorf("no dataset with sample id %q", id)
					}
					datasets = append(datasets, d)
				}
			}
			if engine != "" {
				if _, err := refine.ParseEngine(engine); err != nil {
					return err
				}
			}

			var sub refine.Submitter
			if !noSubmit {
				sub = submit.NewSubmitter(submit.NewRunner(cfg), cfg.SubmitCommand, logger)
			}
			gen := refine.NewGenerator(cfg, sub, logger)

			failed := 0
			for _, d := range datasets {
				if engine != "" {
					d.RefinementProgram = engine
				}
				job, err := gen.Refine(GetContext(), reg.Settings.ProjectDirectory, d)
				if err != nil {
					logger.Error().Err(err).Str("sample", d.SampleID).Msg("Refinement not started")
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s cycle %d\n", d.SampleID, job.Engine, job.Cycle)
			}

			if _, err := reg.Save(projectFile); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d refinements failed", failed, len(datasets))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectFile, "project", "P", DefaultProjectFile, "Project file")
	cmd.Flags().BoolVar(&all, "all", false, "Refine every dataset in the project")
	cmd.Flags().BoolVar(&noSubmit, "no-submit", false, "Write scripts without submitting them")
	cmd.Flags().StringVar(&engine, "engine", "", "Force the engine (refmac|buster) and record it on the dataset")
	return cmd
}
