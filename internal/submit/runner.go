// Package submit runs queue submission commands, either over SSH on the
// cluster login node or on this machine.
package submit

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/xtalbatch/xtalbatch/internal/config"
)

// Runner runs a shell command in a working directory and returns its
// combined output.
type Runner interface {
	Run(ctx context.Context, dir, command string) ([]byte, error)
}

// NewRunner returns an SSHRunner when cfg names a cluster host and a
// LocalRunner otherwise.
func NewRunner(cfg *config.Config) Runner {
	if cfg.Remote() {
		return &SSHRunner{
			Host:       cfg.ClusterHost,
			Port:       cfg.ClusterPort,
			User:       cfg.ClusterUser,
			KeyFile:    cfg.SSHKey,
			KnownHosts: cfg.KnownHosts,
		}
	}
	return &LocalRunner{}
}

// LocalRunner runs commands with the platform shell.
type LocalRunner struct{}

// Run implements Runner.
func (LocalRunner) Run(ctx context.Context, dir, command string) ([]byte, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = dir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return buf.Bytes(), fmt.Errorf("command %q failed: %w", command, err)
	}
	return buf.Bytes(), nil
}

// ShellQuote quotes s for a POSIX shell.
func ShellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./=:,+@%", r)
}
