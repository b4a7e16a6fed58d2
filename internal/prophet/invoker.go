package prophet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/config"
)

// maxDiagnosticBytes bounds the stderr carried inside a ProcessError.
const maxDiagnosticBytes = 4096

// termGracePeriod is how long a cancelled subprocess gets to exit after
// SIGTERM before it is killed.
const termGracePeriod = 10 * time.Second

// ProcessError reports a subprocess that exited non-zero or produced
// malformed output, carrying its diagnostic output.
type ProcessError struct {
	ExitCode   int
	Diagnostic string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("prophet subprocess failed (exit %d): %s", e.ExitCode, e.Diagnostic)
}

// Invoker runs one Prophet prediction under a deadline. Implementations are
// swappable behind the orchestrator: the default is an OS subprocess, but an
// in-process model or a remote service satisfies the same contract.
type Invoker interface {
	Invoke(ctx context.Context, req *Request) (*Response, error)
}

// SubprocessInvoker shells out to the Python Prophet service, feeding the
// serialized request through a scoped temp file on stdin.
type SubprocessInvoker struct {
	pythonBin  string
	scriptPath string
	workDir    string
	logger     *logrus.Logger
}

func NewSubprocessInvoker(cfg config.ProphetConfig, logger *logrus.Logger) *SubprocessInvoker {
	return &SubprocessInvoker{
		pythonBin:  cfg.PythonBin,
		scriptPath: cfg.ScriptPath,
		workDir:    cfg.WorkDir,
		logger:     logger,
	}
}

// Invoke runs `python prophet_service.py predict` with the request on stdin.
// The context deadline is the hard wall-clock timeout: on expiry the process
// receives SIGTERM, then SIGKILL after a grace period. All transient files
// are removed on every exit path.
func (s *SubprocessInvoker) Invoke(ctx context.Context, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prophet request: %w", err)
	}

	input, err := os.CreateTemp(s.workDir, "prophet-input-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create prophet input file: %w", err)
	}
	defer func() {
		_ = input.Close()
		_ = os.Remove(input.Name())
	}()

	if _, err := input.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to write prophet input file: %w", err)
	}
	if _, err := input.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind prophet input file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.pythonBin, s.scriptPath, "predict")
	cmd.Stdin = input
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Cooperative cancellation: SIGTERM on deadline, SIGKILL only after the
	// grace period.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = termGracePeriod

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() != nil {
		s.logger.WithFields(logrus.Fields{
			"script":      s.scriptPath,
			"duration_ms": duration.Milliseconds(),
		}).Warn("Prophet subprocess cancelled by deadline")
		return nil, fmt.Errorf("prophet subprocess timed out after %s: %w", duration.Round(time.Millisecond), ctx.Err())
	}

	if runErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &ProcessError{ExitCode: exitCode, Diagnostic: diagnostic(&stderr, &stdout)}
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, &ProcessError{ExitCode: 0, Diagnostic: "malformed output: " + diagnostic(&stdout, &stderr)}
	}
	if err := response.Validate(req.PredictPeriods); err != nil {
		return nil, &ProcessError{ExitCode: 0, Diagnostic: "invalid response: " + err.Error()}
	}

	s.logger.WithFields(logrus.Fields{
		"retailer_id": req.RetailerID,
		"periods":     req.PredictPeriods,
		"duration_ms": duration.Milliseconds(),
		"confidence":  response.Confidence,
	}).Info("Prophet subprocess completed")

	return &response, nil
}

// diagnostic collapses captured output into a bounded single-line summary.
func diagnostic(primary, secondary *bytes.Buffer) string {
	out := strings.TrimSpace(primary.String())
	if out == "" {
		out = strings.TrimSpace(secondary.String())
	}
	if len(out) > maxDiagnosticBytes {
		out = out[:maxDiagnosticBytes] + "... (truncated)"
	}
	if out == "" {
		return "no diagnostic output"
	}
	return out
}
