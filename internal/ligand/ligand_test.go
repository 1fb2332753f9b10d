package ligand

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtalbatch/xtalbatch/internal/config"
	"github.com/xtalbatch/xtalbatch/internal/logging"
	"github.com/xtalbatch/xtalbatch/internal/submit"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckCSV(t *testing.T) {
	dir := t.TempDir()
	if err := CheckCSV(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for nonexistent file")
	}
	bin := writeFile(t, dir, "binary.csv", "\x00\xff\xfe,x\n")
	if err := CheckCSV(bin); err == nil {
		t.Error("expected error for binary file")
	}
	ok := writeFile(t, dir, "ok.csv", "x001,LIG1,CCO\n")
	if err := CheckCSV(ok); err != nil {
		t.Errorf("CheckCSV() = %v", err)
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"x001,LIG1,CCO", ','},
		{"x001;LIG1;CCO", ';'},
		{"x001;LIG1;C(C)O,", ';'},
		{"x001", ','},
	}
	for _, tt := range tests {
		if got := SniffDelimiter(tt.line); got != tt.want {
			t.Errorf("SniffDelimiter(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestReadCSVReportsShortRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ligands.csv", strings.Join([]string{
		"x001;LIG1;CCO",
		"x002;LIG2",
		"x 003;LIG3;c1ccccc1 O",
		"x004;LIG4;CC(=O)N",
	}, "\n")+"\n")

	rep, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if rep.Lines != 4 {
		t.Errorf("Lines = %d, want 4", rep.Lines)
	}
	if len(rep.Errors) != 1 || !strings.Contains(rep.Errors[0], "line 2") {
		t.Errorf("Errors = %v, want the short row on line 2", rep.Errors)
	}
	if rep.Passed() {
		t.Error("Passed() = true with a short row")
	}
	if len(rep.Warnings) != 2 {
		t.Errorf("Warnings = %v, want two space warnings", rep.Warnings)
	}
	if len(rep.Rows) != 3 {
		t.Fatalf("Rows = %v", rep.Rows)
	}
	if r := rep.Rows[1]; r.SampleID != "x003" || r.Smiles != "c1ccccc1O" || r.Line != 3 {
		t.Errorf("cleaned row = %+v", r)
	}
}

func TestReadCSVCleansAndRejectsPathIDs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ligands.csv", strings.Join([]string{
		"\ufeffx001,LIG\u200b1,CCO\r",
		"../x002,LIG2,CCN",
		"x003,a/b,CCC",
	}, "\n")+"\n")

	rep, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(rep.Rows) != 1 {
		t.Fatalf("Rows = %+v, want only the first row", rep.Rows)
	}
	if r := rep.Rows[0]; r.SampleID != "x001" || r.LigandID != "LIG1" || r.Smiles != "CCO" {
		t.Errorf("row = %+v, want invisible characters stripped", r)
	}
	if len(rep.Errors) != 2 {
		t.Errorf("Errors = %v, want both path-like ids rejected", rep.Errors)
	}
}

func TestWorkDirStaysInProject(t *testing.T) {
	project := t.TempDir()
	dir, err := workDir(project, "x001", "compound")
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(project, "x001", "compound") {
		t.Errorf("workDir = %s", dir)
	}
	if _, err := workDir(project, "x001", "../../outside"); err == nil {
		t.Error("subdirectory escaping the project should fail")
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "ligands.csv", "x001,LIG1,CCO\n")

	if _, err := Check(Options{ProjectDir: dir, CSV: csvPath, Program: "acedrg"}, logging.NewNopLogger()); err != nil {
		t.Errorf("Check() = %v", err)
	}

	_, err := Check(Options{ProjectDir: filepath.Join(dir, "nope"), CSV: filepath.Join(dir, "nope.csv"), Program: "rdkit"}, logging.NewNopLogger())
	if err == nil {
		t.Fatal("expected failures")
	}
	if !errors.Is(err, ErrUnsupportedProgram) {
		t.Errorf("err = %v, want ErrUnsupportedProgram among failures", err)
	}
	for _, want := range []string{"does not exist", "project directory"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err = %v, missing %q", err, want)
		}
	}
}

func TestCheckSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "ligands.csv", "x001,LIG1,CCO\nx002,LIG2\n")
	opts := Options{ProjectDir: dir, CSV: csvPath, Program: "acedrg"}

	rep, err := Check(opts, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("Check() = %v, want malformed rows reported only", err)
	}
	if len(rep.Errors) != 1 || len(rep.Rows) != 1 {
		t.Fatalf("rows=%v errors=%v", rep.Rows, rep.Errors)
	}

	local := &fakeRunner{}
	res, err := NewGenerator(config.Default(), local, nil, logging.NewNopLogger()).Run(context.Background(), opts, rep.Rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Ran) != 1 || res.Ran[0] != "x001/LIG1" {
		t.Errorf("ran = %v, want x001/LIG1", res.Ran)
	}
	if len(local.dirs) != 1 || local.dirs[0] != filepath.Join(dir, "x001") {
		t.Errorf("ran in %v", local.dirs)
	}
}

func TestProgramCommands(t *testing.T) {
	tests := []struct {
		prog Program
		want string
	}{
		{Acedrg, `acedrg --res LIG -i "CCO" -o LIG1`},
		{Grade, `grade -resname LIG -ocif LIG1.cif -opdb LIG1.pdb "CCO"`},
		{Elbow, `phenix.elbow --smiles="CCO" --id=LIG --output=LIG1`},
	}
	for _, tt := range tests {
		if got := tt.prog.Command("LIG1", "CCO"); got != tt.want {
			t.Errorf("%s command = %s, want %s", tt.prog, got, tt.want)
		}
	}

	cfg := config.Default()
	if Grade.Module(cfg) != "module load gopresto BUSTER" || Elbow.Module(cfg) != "module load gopresto Phenix" || Acedrg.Module(cfg) != "module load gopresto CCP4" {
		t.Error("unexpected module lines")
	}
	if _, err := ParseProgram("ELBOW"); err != nil {
		t.Errorf("ParseProgram(ELBOW) = %v", err)
	}
}

func TestRenderScript(t *testing.T) {
	got, err := RenderScript(config.Default(), Acedrg, "/p/x001/compound", Row{LigandID: "LIG1", Smiles: "CCO"})
	if err != nil {
		t.Fatal(err)
	}
	want := "#!/bin/bash\n" +
		"#SBATCH --time=10:00:00\n" +
		"#SBATCH --job-name=acedrg\n" +
		"#SBATCH --cpus-per-task=1\n" +
		"module load gopresto CCP4\n" +
		"cd /p/x001/compound\n" +
		`acedrg --res LIG -i "CCO" -o LIG1` + "\n"
	if got != want {
		t.Errorf("script =\n%s\nwant\n%s", got, want)
	}
}

type fakeRunner struct {
	dirs     []string
	commands []string
}

func (f *fakeRunner) Run(ctx context.Context, dir, command string) ([]byte, error) {
	f.dirs = append(f.dirs, dir)
	f.commands = append(f.commands, command)
	return nil, nil
}

func TestRunLocalAndCluster(t *testing.T) {
	root := t.TempDir()
	rows := []Row{
		{SampleID: "x001", LigandID: "LIG1", Smiles: "CCO"},
		{SampleID: "x002", LigandID: "LIG2", Smiles: "CCN"},
	}
	// x002 already has restraints
	if err := os.MkdirAll(filepath.Join(root, "x002", "compound"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "x002", "compound"), "LIG2.cif", "data_LIG\n")

	local := &fakeRunner{}
	g := NewGenerator(config.Default(), local, nil, logging.NewNopLogger())
	opts := Options{ProjectDir: root, Program: "acedrg", Subdirectory: "compound"}
	res, err := g.Run(context.Background(), opts, rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Ran) != 1 || len(res.Skipped) != 1 {
		t.Errorf("ran=%v skipped=%v", res.Ran, res.Skipped)
	}
	if local.dirs[0] != filepath.Join(root, "x001", "compound") {
		t.Errorf("ran in %s", local.dirs[0])
	}

	remote := &fakeRunner{}
	sub := submit.NewSubmitter(remote, "sbatch", logging.NewNopLogger())
	g = NewGenerator(config.Default(), &fakeRunner{}, sub, logging.NewNopLogger())
	opts.Cluster = true
	opts.Overwrite = true
	res, err = g.Run(context.Background(), opts, rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Submitted) != 2 {
		t.Errorf("submitted = %v, want both rows with overwrite", res.Submitted)
	}
	if remote.commands[0] != "sbatch acedrg.sh" {
		t.Errorf("submit command = %q", remote.commands[0])
	}
	if _, err := os.Stat(filepath.Join(root, "x001", "compound", "acedrg.sh")); err != nil {
		t.Errorf("script not written: %v", err)
	}
}
