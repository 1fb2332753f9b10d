package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtalbatch/xtalbatch/internal/project"
)

func makeSamples(t *testing.T, samples ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, s := range samples {
		dir := filepath.Join(root, s)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{"refine.pdb", "refine.mtz"} {
			if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRootCmd()
	AddCommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)
	for _, name := range []string{"scan", "project", "show", "open", "refine", "restraints", "init-refine", "gui", "config", "completion"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestScanShowOpen(t *testing.T) {
	root := makeSamples(t, "x0002", "x0001")
	projectFile := filepath.Join(t.TempDir(), "proj.json")

	out := run(t, "scan", "-p", root, "-P", projectFile)
	if !strings.Contains(out, "Found 2 model(s): 2 new, 0 updated, 0 skipped") {
		t.Errorf("scan output:\n%s", out)
	}

	// Rescanning must not duplicate samples.
	out = run(t, "scan", "-P", projectFile)
	if !strings.Contains(out, "0 new, 2 updated") {
		t.Errorf("rescan output:\n%s", out)
	}
	reg, err := project.Load(projectFile)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 2 {
		t.Fatalf("registry has %d datasets, want 2", reg.Len())
	}

	out = run(t, "show", "-P", projectFile)
	if !strings.Contains(out, "x0001") || !strings.Contains(out, "x0002") {
		t.Errorf("show output:\n%s", out)
	}

	script := filepath.Join(t.TempDir(), "load.py")
	run(t, "open", "x0002", "-P", projectFile, "-o", script)
	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "x0002", "refine.pdb")
	if !strings.Contains(string(data), want) {
		t.Errorf("script does not load %s:\n%s", want, data)
	}
}

func TestResolveIndex(t *testing.T) {
	reg := project.New()
	for _, id := range []string{"a", "b", "c"} {
		reg.Upsert(id)
	}

	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{"1", 0, false},
		{"3", 2, false},
		{"b", 1, false},
		{"0", 0, true},
		{"4", 0, true},
		{"missing", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := resolveIndex(reg, tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveIndex(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("resolveIndex(%q) = %d, want %d", tt.arg, got, tt.want)
			}
		})
	}
}

func TestDash(t *testing.T) {
	if dash("") != "-" || dash("1.5") != "1.5" {
		t.Error("dash")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{"2", project.StatusInRefinement, false},
		{"-1", project.StatusRejected, false},
		{project.StatusDepositionReady, project.StatusDepositionReady, false},
		{"7", "", true},
		{"done", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseStatus(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseStatus(%q) error = %v", tt.arg, err)
			}
			if got != tt.want {
				t.Errorf("parseStatus(%q) = %q, want %q", tt.arg, got, tt.want)
			}
		})
	}
}

func TestProjectStatusAndTag(t *testing.T) {
	root := makeSamples(t, "x0001")
	projectFile := filepath.Join(t.TempDir(), "proj.json")
	run(t, "scan", "-p", root, "-P", projectFile)

	run(t, "project", "status", "x0001", "3", "-P", projectFile)
	run(t, "project", "tag", "x0001", "apo", "-P", projectFile)

	reg, err := project.Load(projectFile)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := reg.Get("x0001")
	if d.Status != project.StatusDepositionReady || d.Tag != "apo" {
		t.Errorf("dataset = %+v", d)
	}

	root2 := NewRootCmd()
	AddCommands(root2)
	root2.SetOut(&bytes.Buffer{})
	root2.SetErr(&bytes.Buffer{})
	root2.SetArgs([]string{"project", "tag", "nope", "x", "-P", projectFile})
	if err := root2.Execute(); err == nil {
		t.Error("tagging an unknown sample should fail")
	}
}

func TestProjectRevert(t *testing.T) {
	root := makeSamples(t, "x0001")
	projectFile := filepath.Join(t.TempDir(), "proj.json")
	run(t, "scan", "-p", root, "-P", projectFile, "--mtz", "final.mtz")

	out := run(t, "project", "revert", "-P", projectFile)
	if !strings.Contains(out, "refine.mtz") || !strings.Contains(out, root) {
		t.Errorf("revert output:\n%s", out)
	}
	reg, err := project.Load(projectFile)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Settings.ReflectionFile != "refine.mtz" || reg.Settings.ProjectDirectory != root {
		t.Errorf("settings after revert = %+v", reg.Settings)
	}
}
