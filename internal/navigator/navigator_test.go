package navigator

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/xtalbatch/xtalbatch/internal/host"
	"github.com/xtalbatch/xtalbatch/internal/logging"
	"github.com/xtalbatch/xtalbatch/internal/project"
)

// fakeHost records calls and keeps a set of open molecules.
type fakeHost struct {
	next    host.MoleculeID
	open    map[host.MoleculeID]string
	calls   []string
	written map[host.MoleculeID]string
	failOn  string
}

func newFakeHost() *fakeHost {
	return &fakeHost{open: map[host.MoleculeID]string{}, written: map[host.MoleculeID]string{}}
}

func (f *fakeHost) add(what string) host.MoleculeID {
	id := f.next
	f.next++
	f.open[id] = what
	return id
}

func (f *fakeHost) MoleculeList() []host.MoleculeID {
	ids := make([]host.MoleculeID, 0, len(f.open))
	for id := range f.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *fakeHost) CloseMolecule(id host.MoleculeID) error {
	f.calls = append(f.calls, "close")
	delete(f.open, id)
	return nil
}

func (f *fakeHost) ReadModel(path string, recentre bool) (host.MoleculeID, error) {
	f.calls = append(f.calls, "model:"+filepath.Base(path))
	if path == f.failOn {
		return host.NoMolecule, errors.New("no such file")
	}
	return f.add(path), nil
}

func (f *fakeHost) AutoReadMaps(path string) (host.MoleculeID, error) {
	f.calls = append(f.calls, "maps:"+filepath.Base(path))
	id := f.add(path + " 2fofc")
	f.add(path + " fofc")
	return id, nil
}

func (f *fakeHost) ReadDictionary(path string) error {
	f.calls = append(f.calls, "dict:"+filepath.Base(path))
	return nil
}

func (f *fakeHost) MoveMoleculeHere(id host.MoleculeID) error {
	f.calls = append(f.calls, "move")
	return nil
}

func (f *fakeHost) MergeMolecules(src []host.MoleculeID, dst host.MoleculeID) error {
	f.calls = append(f.calls, "merge")
	return nil
}

func (f *fakeHost) WriteModel(id host.MoleculeID, path string) error {
	f.written[id] = path
	return os.WriteFile(path, []byte("CRYST1\n"), 0644)
}

const header = `REMARK   3   RESOLUTION RANGE HIGH (ANGSTROMS) : 1.85
REMARK   3   R VALUE     (WORKING + TEST SET) : 0.2012
REMARK   3   FREE R VALUE                     : 0.2433
CRYST1   78.100   78.100   37.200  90.00  90.00  90.00 P 43 21 2
`

func makeRegistry(t *testing.T, samples ...string) *project.Registry {
	t.Helper()
	root := t.TempDir()
	reg := project.New()
	reg.Settings.ProjectDirectory = root
	for _, s := range samples {
		dir := filepath.Join(root, s)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		model := filepath.Join(dir, "refine.pdb")
		if err := os.WriteFile(model, []byte(header), 0644); err != nil {
			t.Fatal(err)
		}
		d, _ := reg.Upsert(s)
		d.Model = model
		d.Reflections = filepath.Join(dir, "refine.mtz")
	}
	return reg
}

func TestCursorStaysInBounds(t *testing.T) {
	reg := makeRegistry(t, "x001", "x002", "x003")
	n := New(reg, newFakeHost(), logging.NewNopLogger())

	if n.Cursor() != -1 {
		t.Fatalf("initial Cursor() = %d, want -1", n.Cursor())
	}

	steps := []struct {
		move func() error
		want int
	}{
		{n.Backward, 0},
		{n.Forward, 1},
		{n.Forward, 2},
		{n.Forward, 2},
		{n.Backward, 1},
		{func() error { return n.Goto(99) }, 2},
		{func() error { return n.Goto(-5) }, 0},
	}
	for i, s := range steps {
		if err := s.move(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if n.Cursor() != s.want {
			t.Errorf("step %d: Cursor() = %d, want %d", i, n.Cursor(), s.want)
		}
	}
}

func TestFirstForwardShowsFirstDataset(t *testing.T) {
	reg := makeRegistry(t, "x001", "x002")
	n := New(reg, newFakeHost(), logging.NewNopLogger())
	if err := n.Forward(); err != nil {
		t.Fatal(err)
	}
	if n.Cursor() != 0 {
		t.Errorf("Cursor() = %d, want 0", n.Cursor())
	}
	l := n.Labels()
	if l.Index != "1" || l.Total != "2" || l.Sample != "x001" {
		t.Errorf("labels = %+v", l)
	}
	if l.Resolution != "1.85" || l.RWork != "0.2012" || l.RFree != "0.2433" || l.SpaceGroup != "P 43 21 2" {
		t.Errorf("statistics = %+v", l)
	}
	if l.Fraction != 0.5 {
		t.Errorf("Fraction = %v, want 0.5", l.Fraction)
	}
}

func TestEmptyRegistry(t *testing.T) {
	h := newFakeHost()
	h.add("leftover")
	n := New(project.New(), h, logging.NewNopLogger())

	err := n.Forward()
	if !errors.Is(err, project.ErrEmptyRegistry) {
		t.Fatalf("Forward() error = %v, want ErrEmptyRegistry", err)
	}
	if n.Cursor() != -1 {
		t.Errorf("Cursor() = %d, want -1", n.Cursor())
	}
	if len(h.open) != 0 {
		t.Errorf("host still shows %v", h.open)
	}
}

func TestRefreshReplacesHostContents(t *testing.T) {
	reg := makeRegistry(t, "x001", "x002")
	d, _ := reg.Get("x002")
	d.LigandRestraints = filepath.Join(filepath.Dir(d.Model), "LIG.cif")
	d.LigandStructure = filepath.Join(filepath.Dir(d.Model), "LIG.pdb")

	h := newFakeHost()
	n := New(reg, h, logging.NewNopLogger())
	if err := n.Forward(); err != nil {
		t.Fatal(err)
	}
	if len(h.open) != 3 {
		t.Fatalf("open after first dataset = %d, want model and two maps", len(h.open))
	}
	if err := n.Forward(); err != nil {
		t.Fatal(err)
	}
	if len(h.open) != 4 {
		t.Errorf("open after second dataset = %d, want model, two maps and ligand", len(h.open))
	}
	for _, what := range h.open {
		if filepath.Dir(what) != filepath.Dir(d.Model) {
			t.Errorf("molecule from another dataset still open: %s", what)
		}
	}
	hd := n.Handles()
	if hd.Ligand == host.NoMolecule || hd.Model == host.NoMolecule {
		t.Errorf("handles = %+v", hd)
	}
}

func TestMissingModelSurfacesHostError(t *testing.T) {
	reg := makeRegistry(t, "x001")
	d, _ := reg.Get("x001")
	d.Model = filepath.Join(t.TempDir(), "missing.pdb")

	h := newFakeHost()
	h.failOn = d.Model
	n := New(reg, h, logging.NewNopLogger())
	if err := n.Forward(); err == nil {
		t.Error("expected load error")
	}
	if n.Cursor() != 0 {
		t.Errorf("Cursor() = %d, want 0", n.Cursor())
	}
	if n.Labels().Sample != "x001" {
		t.Errorf("labels not updated: %+v", n.Labels())
	}
}

func TestMergeLigand(t *testing.T) {
	reg := makeRegistry(t, "x001")
	d, _ := reg.Get("x001")
	d.LigandRestraints = "LIG.cif"
	d.LigandStructure = "LIG.pdb"

	h := newFakeHost()
	n := New(reg, h, logging.NewNopLogger())
	if err := n.PlaceLigand(); !errors.Is(err, ErrNoLigand) {
		t.Errorf("PlaceLigand() before load = %v", err)
	}
	if err := n.Forward(); err != nil {
		t.Fatal(err)
	}
	if err := n.PlaceLigand(); err != nil {
		t.Fatal(err)
	}
	if err := n.MergeLigand(); err != nil {
		t.Fatal(err)
	}
	if n.Handles().Ligand != host.NoMolecule {
		t.Error("ligand handle not cleared after merge")
	}
	if err := n.MergeLigand(); !errors.Is(err, ErrNoLigand) {
		t.Errorf("second MergeLigand() = %v, want ErrNoLigand", err)
	}
}

func TestSaveModelVersions(t *testing.T) {
	reg := makeRegistry(t, "x001")
	n := New(reg, newFakeHost(), logging.NewNopLogger())
	if _, err := n.SaveModel(); !errors.Is(err, ErrNoModel) {
		t.Errorf("SaveModel() before load = %v", err)
	}
	if err := n.Forward(); err != nil {
		t.Fatal(err)
	}

	first, err := n.SaveModel()
	if err != nil {
		t.Fatal(err)
	}
	second, err := n.SaveModel()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first) != "fitted-v0001.pdb" || filepath.Base(second) != "fitted-v0002.pdb" {
		t.Errorf("saved %s then %s", first, second)
	}

	link := filepath.Join(filepath.Dir(second), "x001-model.pdb")
	if _, err := os.Stat(link); err != nil {
		t.Fatalf("model link missing: %v", err)
	}
	if target, err := os.Readlink(link); err == nil && target != "fitted-v0002.pdb" {
		t.Errorf("link points to %s", target)
	}
}

func TestSaveModelVersionsWithDeferredWrites(t *testing.T) {
	reg := makeRegistry(t, "x001")
	var script bytes.Buffer
	n := New(reg, host.NewCootScript(&script), logging.NewNopLogger())
	if err := n.Forward(); err != nil {
		t.Fatal(err)
	}

	// The script host writes nothing to disk until Coot runs the commands.
	var got []string
	for i := 0; i < 3; i++ {
		path, err := n.SaveModel()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, filepath.Base(path))
	}
	want := []string{"fitted-v0001.pdb", "fitted-v0002.pdb", "fitted-v0003.pdb"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("saved %v, want %v", got, want)
		}
	}
	if c := strings.Count(script.String(), "write_pdb_file("); c != 3 {
		t.Errorf("%d write_pdb_file commands, want 3", c)
	}
}
