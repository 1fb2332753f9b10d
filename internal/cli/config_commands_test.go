package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtalbatch/xtalbatch/internal/config"
)

// useConfigFile points --config at path for the duration of the test.
func useConfigFile(t *testing.T, path string) {
	t.Helper()
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
}

func TestConfigCommandStructure(t *testing.T) {
	cmd := newConfigCmd()
	want := map[string]bool{"init": false, "show": false, "path": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
		if sub.Short == "" {
			t.Errorf("%s: short description is empty", sub.Name())
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("config %s not registered", name)
		}
	}
}

func TestConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")
	useConfigFile(t, path)

	var out bytes.Buffer
	cmd := newConfigPathCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != path {
		t.Errorf("config path = %q, want %q", got, path)
	}
}

func TestConfigInitWritesAnswers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")
	useConfigFile(t, path)

	// host empty, then submit command, time, cpus, engine, sentinel
	answers := "\nqsub\n\n4\nbuster\n\n"

	var out bytes.Buffer
	cmd := newConfigInitCmd()
	cmd.SetIn(strings.NewReader(answers))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v\n%s", err, out.String())
	}

	cfg, err := config.LoadConfigCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SubmitCommand != "qsub" {
		t.Errorf("SubmitCommand = %q, want qsub", cfg.SubmitCommand)
	}
	if cfg.SlurmCPUs != 4 {
		t.Errorf("SlurmCPUs = %d, want 4", cfg.SlurmCPUs)
	}
	if cfg.RefineEngine != "buster" {
		t.Errorf("RefineEngine = %q, want buster", cfg.RefineEngine)
	}
	if cfg.SlurmTime != config.Default().SlurmTime {
		t.Errorf("SlurmTime = %q, want default kept", cfg.SlurmTime)
	}
	if cfg.Remote() {
		t.Error("empty host should keep jobs local")
	}
}

func TestConfigInitKeepsExistingWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")
	useConfigFile(t, path)
	if err := os.WriteFile(path, []byte("submit_command,sbatch\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newConfigInitCmd()
	cmd.SetIn(strings.NewReader("\nqsub\n"))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("expected existing-config notice, got:\n%s", out.String())
	}
	data, _ := os.ReadFile(path)
	if string(data) != "submit_command,sbatch\n" {
		t.Errorf("config overwritten without --force: %q", data)
	}
}

func TestPromptConfig(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(*testing.T, *config.Config)
		wantErr bool
	}{
		{
			name:  "remote cluster",
			input: "login.cluster\nalice\n2222\n~/.ssh/id_ed25519\n\n\n\n\n\n\n",
			check: func(t *testing.T, c *config.Config) {
				if c.ClusterHost != "login.cluster" || c.ClusterUser != "alice" || c.ClusterPort != 2222 {
					t.Errorf("cluster = %s@%s:%d", c.ClusterUser, c.ClusterHost, c.ClusterPort)
				}
				if c.SSHKey != "~/.ssh/id_ed25519" {
					t.Errorf("SSHKey = %q", c.SSHKey)
				}
				if c.SubmitCommand != "sbatch" {
					t.Errorf("SubmitCommand = %q, want default", c.SubmitCommand)
				}
			},
		},
		{
			name:    "bad port",
			input:   "login.cluster\nalice\nnot-a-port\n",
			wantErr: true,
		},
		{
			name:  "invalid cpus keep default",
			input: "\n\n\nzero\n\n\n",
			check: func(t *testing.T, c *config.Config) {
				if c.SlurmCPUs != 1 {
					t.Errorf("SlurmCPUs = %d, want 1", c.SlurmCPUs)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			err := promptConfig(strings.NewReader(tt.input), &bytes.Buffer{}, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("promptConfig error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestPrintConfig(t *testing.T) {
	cfg := config.Default()
	var out bytes.Buffer
	printConfig(&out, cfg)
	s := out.String()
	for _, want := range []string{"submit_command:", "sbatch", "cluster_host:", "<not set>", "on this machine"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}

	cfg.ClusterHost = "login.cluster"
	out.Reset()
	printConfig(&out, cfg)
	if !strings.Contains(out.String(), "over SSH to login.cluster") {
		t.Errorf("remote config not reported:\n%s", out.String())
	}
}
