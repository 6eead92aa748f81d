package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"golang.org/x/term"
)

// fder is satisfied by *os.File.
type fder interface {
	Fd() uintptr
}

// TerminalPrompter reads passwords from a terminal without echoing them.
// When its input is not a terminal (a pipe in scripts or tests), it reads one
// line per prompt instead. End of input counts as the user cancelling.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer

	mu     sync.Mutex
	reader *bufio.Reader
}

// NewTerminalPrompter returns a prompter reading from in and writing prompts
// to out. Nil arguments default to os.Stdin and os.Stderr.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &TerminalPrompter{in: in, out: out}
}

// PromptPassword shows message and returns the typed password.
// It returns errors.ErrCancelled on end of input or a cancelled context.
func (p *TerminalPrompter) PromptPassword(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", kerrors.ErrCancelled
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if fd, ok := p.terminalFd(); ok {
		fmt.Fprint(p.out, message)
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out) // Add newline after hidden input

		if errors.Is(err, io.EOF) {
			return "", kerrors.ErrCancelled
		}
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	fmt.Fprint(p.out, message)
	line, err := p.readLine()
	fmt.Fprintln(p.out)
	return line, err
}

// Confirm asks a yes/no question. Anything but "y" or "yes" is no.
func (p *TerminalPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, kerrors.ErrCancelled
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.out, question+" [y/N]: ")
	line, err := p.readLine()
	if err != nil {
		fmt.Fprintln(p.out)
		return false, err
	}
	return IsAffirmative(line), nil
}

func (p *TerminalPrompter) terminalFd() (int, bool) {
	f, ok := p.in.(fder)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// readLine reads one line, keeping buffered input for the next prompt.
func (p *TerminalPrompter) readLine() (string, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.in)
	}

	line, err := p.reader.ReadString('\n')
	if errors.Is(err, io.EOF) && line == "" {
		return "", kerrors.ErrCancelled
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
