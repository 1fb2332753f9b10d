// xtalbatch - batch model building and refinement for crystallographic
// fragment screens.
//
// Commands cover discovering datasets in a project directory, stepping
// through them in Coot, writing and submitting refinement jobs, generating
// ligand restraints and running initial refinement of autoprocessing
// results. See 'xtalbatch --help'.
package main

import (
	"os"

	"github.com/xtalbatch/xtalbatch/internal/cli"
)

func main() {
	// cobra has already printed the error.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
