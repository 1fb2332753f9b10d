package ligand

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xtalbatch/xtalbatch/internal/config"
)

// ErrUnsupportedProgram is returned for a restraint program other than
// acedrg, grade or elbow.
var ErrUnsupportedProgram = errors.New("unsupported restraints program")

// Program is a restraint generation program.
type Program string

const (
	Acedrg Program = "acedrg"
	Grade  Program = "grade"
	Elbow  Program = "elbow"
)

// Programs lists the supported programs.
func Programs() []Program {
	return []Program{Acedrg, Grade, Elbow}
}

// ParseProgram validates name.
func ParseProgram(name string) (Program, error) {
	for _, p := range Programs() {
		if strings.EqualFold(name, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want acedrg, grade or elbow)", ErrUnsupportedProgram, name)
}

// Command returns the shell command generating <ligandID>.cif and
// <ligandID>.pdb from smiles. The residue name is always LIG.
func (p Program) Command(ligandID, smiles string) string {
	switch p {
	case Acedrg:
		return fmt.Sprintf(`acedrg --res LIG -i "%s" -o %s`, smiles, ligandID)
	case Grade:
		return fmt.Sprintf(`grade -resname LIG -ocif %s.cif -opdb %s.pdb "%s"`, ligandID, ligandID, smiles)
	case Elbow:
		return fmt.Sprintf(`phenix.elbow --smiles="%s" --id=LIG --output=%s`, smiles, ligandID)
	}
	return ""
}

// Module returns the environment module line for the program's suite.
func (p Program) Module(cfg *config.Config) string {
	switch p {
	case Grade:
		return cfg.BusterModule
	case Elbow:
		return cfg.PhenixModule
	}
	return cfg.CCP4Module
}
