package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// DefaultFormat is the exporter's dark HTML theme.
const DefaultFormat = "HtmlDark"

// ErrExporterNotFound is returned when the exporter binary does not exist.
var ErrExporterNotFound = errors.New("exporter binary not found")

// Args builds the exporter command line for one thread:
//
//	export -t <token> -c <thread_id> -f <format> --media --media-dir <assets> -o <output>
func Args(token, threadID, format, assetsDir, outputFile string) []string {
	if format == "" {
		format = DefaultFormat
	}
	return []string{
		"export",
		"-t", token,
		"-c", threadID,
		"-f", format,
		"--media",
		"--media-dir", assetsDir,
		"-o", outputFile,
	}
}

// Result is the outcome of one exporter process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner starts the exporter. A non-zero exit is reported through
// Result.ExitCode with a nil error; errors mean the process could not run.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (Result, error)
}

// ExecRunner runs the exporter with os/exec, capturing its output.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, nil
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return res, fmt.Errorf("%w: %s", ErrExporterNotFound, name)
	default:
		return res, err
	}
}

// CheckBinary verifies the exporter path points at a file.
func CheckBinary(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", ErrExporterNotFound)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrExporterNotFound, path)
		}
		return fmt.Errorf("stat exporter: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrExporterNotFound, path)
	}
	return nil
}

// redactArgs masks the value following -t so commands can be logged.
func redactArgs(args []string) []string {
	out := append([]string(nil), args...)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "-t" || out[i] == "--token" {
			out[i+1] = "[REDACTED]"
			i++
		}
	}
	return out
}
