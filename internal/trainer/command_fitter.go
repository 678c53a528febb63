package trainer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"langid-backend/pkg/api"
)

const JobFile = "job.json"

// CommandFitter runs an external training program, typically a transformers
// script, as `<Command...> --job <work dir>/job.json`. Its stdout and stderr
// are forwarded to slog line by line.
type CommandFitter struct {
	Command []string
	Env     []string
}

func NewCommandFitter(command []string) *CommandFitter {
	return &CommandFitter{Command: command}
}

func (f *CommandFitter) Fit(ctx context.Context, job api.FitJob) error {
	if len(f.Command) == 0 {
		return fmt.Errorf("no fitter command configured")
	}

	jobPath, err := writeJob(job)
	if err != nil {
		return err
	}

	args := append(append([]string{}, f.Command[1:]...), "--job", jobPath)
	cmd := exec.CommandContext(ctx, f.Command[0], args...)
	cmd.Dir = job.WorkDir
	if len(f.Env) > 0 {
		cmd.Env = append(os.Environ(), f.Env...)
	}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			slog.Info("fitter", "output", scanner.Text())
		}
		// drain so the child never blocks on a full pipe
		_, _ = io.Copy(io.Discard, pr)
	}()

	slog.Info("starting fitter", "command", f.Command[0], "job", jobPath)
	runErr := cmd.Run()
	pw.Close()
	<-forwarded

	if runErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("fitter cancelled: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return fmt.Errorf("fitter exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("error running fitter: %w", runErr)
	}

	if info, err := os.Stat(job.OutputDir); err != nil || !info.IsDir() {
		return fmt.Errorf("fitter finished but output dir %s was not created", job.OutputDir)
	}
	return nil
}

func writeJob(job api.FitJob) (string, error) {
	if err := os.MkdirAll(job.WorkDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("error creating work dir %s: %w", job.WorkDir, err)
	}

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding fit job: %w", err)
	}

	path := filepath.Join(job.WorkDir, JobFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("error writing fit job %s: %w", path, err)
	}
	return path, nil
}
