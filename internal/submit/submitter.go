package submit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xtalbatch/xtalbatch/internal/logging"
)

// Submitter hands scripts to the batch queue.
type Submitter struct {
	runner  Runner
	command string
	logger  *logging.Logger
}

// NewSubmitter creates a submitter running command (e.g. "sbatch")
// through runner.
func NewSubmitter(runner Runner, command string, logger *logging.Logger) *Submitter {
	return &Submitter{runner: runner, command: command, logger: logging.OrDefault(logger)}
}

// Submit runs "<command> <script>" in the script's directory. The queue's
// reply is logged as-is; it is not parsed for a job id. An error means the
// command could not be run or exited non-zero.
func (s *Submitter) Submit(ctx context.Context, script string) error {
	if s.command == "" {
		return fmt.Errorf("no submit command configured")
	}
	dir := filepath.Dir(script)
	line := s.command + " " + ShellQuote(filepath.Base(script))

	s.logger.Info().Str("dir", dir).Str("command", line).Msg("Submitting job")
	out, err := s.runner.Run(ctx, dir, line)
	if reply := strings.TrimSpace(string(out)); reply != "" {
		s.logger.Info().Str("script", filepath.Base(script)).Msg(reply)
	}
	if err != nil {
		return fmt.Errorf("failed to submit %s: %w", script, err)
	}
	return nil
}
