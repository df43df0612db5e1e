package calculix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a solver run.
const DefaultTimeout = 10 * time.Minute

// Solver runs ccx on input decks.
type Solver struct {
	Executable string        // default "ccx"
	Threads    int           // OMP_NUM_THREADS when > 0
	Timeout    time.Duration // default DefaultTimeout
	Logger     *slog.Logger
}

// RunResult describes one solver run. A failed run is reported here, not
// as an error.
type RunResult struct {
	Success  bool
	Stdout   string
	Stderr   string
	Message  string
	FRD      string // path of the result file
	Duration time.Duration
}

// Run solves input, a path to "<job>.inp", in the input's directory and
// expects "<job>.frd" next to it.
func (s *Solver) Run(ctx context.Context, input string) RunResult {
	exe := s.Executable
	if exe == "" {
		exe = "ccx"
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(input)
	job := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	res := RunResult{FRD: filepath.Join(dir, job+".frd")}

	if _, err := exec.LookPath(exe); err != nil {
		res.Message = fmt.Sprintf("CalculiX (%s) not found in PATH", exe)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, exe, "-i", job)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	cmd.Env = os.Environ()
	if s.Threads > 0 {
		cmd.Env = append(cmd.Env, fmt.Sprintf("OMP_NUM_THREADS=%d", s.Threads))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("running solver", "job", job, "dir", dir)
	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout, res.Stderr = stdout.String(), stderr.String()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Message = "Solver timeout exceeded"
	case err != nil:
		res.Message = fmt.Sprintf("ccx failed: %v", err)
	default:
		res.Success = true
		res.Message = "ok"
	}
	logger.Info("solver finished", "job", job, "success", res.Success, "duration", res.Duration)
	return res
}
