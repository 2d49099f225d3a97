package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/ports"
)

// LocalExecutor runs diagnostic scripts as child processes.
type LocalExecutor struct {
	dir     string
	timeout time.Duration
}

// NewLocalExecutor builds a new executor. Scripts run from dir (defaults
// to "/") and are killed after timeout when it is positive.
func NewLocalExecutor(dir string, timeout time.Duration) *LocalExecutor {
	if dir == "" {
		dir = "/"
	}
	return &LocalExecutor{dir: dir, timeout: timeout}
}

// Run implements ports.ScriptRunner. A non-zero exit still returns the
// captured stdout together with the error.
func (e *LocalExecutor) Run(ctx context.Context, path string, env []string) (domain.ExecutionResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, path)
	c.Dir = e.dir
	c.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	result := domain.ExecutionResult{
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.String(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s: %w", path, ctxErr)
		}
		return result, fmt.Errorf("%s: %w", path, err)
	}
	if err != nil {
		return result, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}

var _ ports.ScriptRunner = (*LocalExecutor)(nil)
