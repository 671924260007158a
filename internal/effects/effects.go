// Package effects isolates every filesystem and process side effect behind
// one interface so a dry run can be selected once at startup.
package effects

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Effects performs (or merely announces) side effects.
type Effects interface {
	// MkdirAll creates dir and any missing parents. Existing dirs are fine.
	MkdirAll(dir string) error
	// Run executes name with args and blocks until it exits.
	Run(ctx context.Context, name string, args []string) error
	// Copy copies src to dst, replacing dst.
	Copy(src, dst string) error
	// DryRun reports whether side effects are only printed.
	DryRun() bool
}

// Real performs side effects.
type Real struct{}

// NewReal returns the side-effecting implementation
func NewReal() *Real {
	return &Real{}
}

func (r *Real) MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func (r *Real) Run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w, stderr: %s", name, err, tail(stderr.String(), 2048))
	}
	return nil
}

func (r *Real) Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

func (r *Real) DryRun() bool { return false }

// Printer prints the shell equivalent of every side effect instead of
// performing it. It only reads the filesystem.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewDryRun returns an implementation that writes intents to w
func NewDryRun(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) MkdirAll(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	p.printf("mkdir %s\n", quote(dir))
	return nil
}

func (p *Printer) Run(_ context.Context, name string, args []string) error {
	p.printf("%s\n", CommandLine(name, args))
	return nil
}

func (p *Printer) Copy(src, dst string) error {
	p.printf("cp %s %s\n", quote(src), quote(dst))
	return nil
}

func (p *Printer) DryRun() bool { return true }

func (p *Printer) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

// CommandLine renders name and args as a copy-pasteable shell command.
func CommandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(filepath.ToSlash(name)))
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:%=+,@", r)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
