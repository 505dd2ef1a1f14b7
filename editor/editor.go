// Package editor composes post content in the user's text editor.
// The editor process is launched through a Runner so tests can substitute
// a fake that edits the file in place.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/zhubert/quill/logger"
)

// DefaultEditor is used when neither VISUAL nor EDITOR is set.
const DefaultEditor = "vi"

// ErrEmpty is returned when the editor was closed without any content.
var ErrEmpty = errors.New("aborting: empty content")

// Runner starts a command attached to the terminal and waits for it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// TerminalRunner runs commands with the process's own stdio.
type TerminalRunner struct{}

// Run executes name with args and waits for it to exit.
func (TerminalRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Command returns the editor command line from VISUAL, then EDITOR, then
// DefaultEditor. Values like "code --wait" are split shell style.
func Command() ([]string, error) {
	line := os.Getenv("VISUAL")
	if line == "" {
		line = os.Getenv("EDITOR")
	}
	if line == "" {
		line = DefaultEditor
	}
	parts, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("invalid editor %q: %w", line, err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("invalid editor %q", line)
	}
	return parts, nil
}

// Editor opens content in an external editor.
type Editor struct {
	runner Runner
}

// New creates an Editor. A nil runner uses TerminalRunner.
func New(runner Runner) *Editor {
	if runner == nil {
		runner = TerminalRunner{}
	}
	return &Editor{runner: runner}
}

// Edit writes initial to a temporary markdown file, opens it in the editor
// and returns what was saved. Surrounding whitespace is trimmed; an empty
// result is ErrEmpty.
func (e *Editor) Edit(ctx context.Context, initial string) (string, error) {
	log := logger.WithComponent("editor")

	argv, err := Command()
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "quill-post-*.md")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	args := append(argv[1:], path)
	log.Debug("opening editor", "editor", argv[0], "path", path)
	if err := e.runner.Run(ctx, argv[0], args...); err != nil {
		return "", fmt.Errorf("editor %s failed: %w", argv[0], err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", ErrEmpty
	}
	return content, nil
}
