package host

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// CootScript is a Host that writes Coot Python commands to a writer
// instead of calling into a running program. Pipe its output into Coot's
// scripting console, or save it and run `coot --script file.py`.
//
// Molecule numbers are predicted the way Coot assigns them: sequentially
// from zero, with auto_read_make_and_draw_maps taking two slots (2Fo-Fc
// and Fo-Fc).
type CootScript struct {
	mu   sync.Mutex
	out  io.Writer
	next MoleculeID
	open map[MoleculeID]bool
	// prepared is set once the per-session display settings are emitted.
	prepared bool
}

// NewCootScript creates a script host writing to out.
func NewCootScript(out io.Writer) *CootScript {
	return &CootScript{out: out, open: make(map[MoleculeID]bool)}
}

func (c *CootScript) emit(format string, args ...interface{}) error {
	if _, err := fmt.Fprintf(c.out, format+"\n", args...); err != nil {
		return fmt.Errorf("failed to write coot command: %w", err)
	}
	return nil
}

func (c *CootScript) allocate(n int) MoleculeID {
	id := c.next
	for i := 0; i < n; i++ {
		c.open[c.next] = true
		c.next++
	}
	return id
}

// MoleculeList returns the predicted open molecules in ascending order.
func (c *CootScript) MoleculeList() []MoleculeID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]MoleculeID, 0, len(c.open))
	for id := range c.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CloseMolecule emits close_molecule.
func (c *CootScript) CloseMolecule(id MoleculeID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.open, id)
	return c.emit("close_molecule(%d)", id)
}

// ReadModel emits handle_read_draw_molecule_with_recentre. The first call
// also switches off nomenclature checks and colour rotation.
func (c *CootScript) ReadModel(path string, recentre bool) (MoleculeID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.prepared {
		for _, cmd := range []string{
			`set_nomenclature_errors_on_read("ignore")`,
			"set_colour_map_rotation_on_read_pdb(0)",
			"set_colour_map_rotation_for_map(0)",
		} {
			if err := c.emit("%s", cmd); err != nil {
				return NoMolecule, err
			}
		}
		c.prepared = true
	}
	flag := 0
	if recentre {
		flag = 1
	}
	if err := c.emit("handle_read_draw_molecule_with_recentre(%s, %d)", pyString(path), flag); err != nil {
		return NoMolecule, err
	}
	return c.allocate(1), nil
}

// AutoReadMaps emits auto_read_make_and_draw_maps.
func (c *CootScript) AutoReadMaps(path string) (MoleculeID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.emit("auto_read_make_and_draw_maps(%s)", pyString(path)); err != nil {
		return NoMolecule, err
	}
	return c.allocate(2), nil
}

// ReadDictionary emits read_cif_dictionary.
func (c *CootScript) ReadDictionary(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emit("read_cif_dictionary(%s)", pyString(path))
}

// MoveMoleculeHere emits move_molecule_here.
func (c *CootScript) MoveMoleculeHere(id MoleculeID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emit("move_molecule_here(%d)", id)
}

// MergeMolecules emits merge_molecules_py.
func (c *CootScript) MergeMolecules(src []MoleculeID, dst MoleculeID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(src))
	for i, id := range src {
		ids[i] = strconv.Itoa(int(id))
	}
	return c.emit("merge_molecules_py([%s], %d)", strings.Join(ids, ", "), dst)
}

// WriteModel emits write_pdb_file.
func (c *CootScript) WriteModel(id MoleculeID, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emit("write_pdb_file(%d, %s)", id, pyString(path))
}

// pyString quotes s as a Python string literal. Windows paths keep their
// backslashes escaped.
func pyString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
