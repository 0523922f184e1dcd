// Package rawterm provides a raw terminal interface for the interactive
// console.
//
// Newlines are always LF (not CR or CRLF). While terminals generally use a
// different format (CR when pressing the enter key and CRLF for newline) the
// format returned by Getchar and expected as input by Putchar is a single LF
// as newline symbol.
package rawterm

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh/terminal"
)

// Control characters handled by ReadLine.
const (
	CtrlC     = '\x03'
	CtrlD     = '\x04'
	CtrlX     = '\x18'
	Backspace = '\x7f'
)

// ErrInterrupted is returned by ReadLine when the user pressed Ctrl-C,
// Ctrl-D or Ctrl-X.
var ErrInterrupted = errors.New("rawterm: interrupted")

// Terminal reads characters one at a time and writes them with CRLF
// newlines.
type Terminal struct {
	in  io.Reader
	out io.Writer

	fd    int
	state *terminal.State
}

// New returns a Terminal on arbitrary streams. It does not change any
// terminal mode.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out, fd: -1}
}

// Configure puts stdin in raw mode and returns a Terminal on stdin and
// stdout. It must be restored after use with Restore:
//
//	term, err := rawterm.Configure()
//	if err != nil {
//		return err
//	}
//	defer term.Restore()
func Configure() (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !terminal.IsTerminal(fd) {
		return nil, errors.New("rawterm: stdin is not a terminal")
	}
	state, err := terminal.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(err, "rawterm: make raw")
	}
	return &Terminal{in: os.Stdin, out: os.Stdout, fd: fd, state: state}, nil
}

// Restore restores the terminal mode from before Configure. It does nothing
// for a Terminal returned by New.
func (t *Terminal) Restore() error {
	if t.state == nil {
		return nil
	}
	return terminal.Restore(t.fd, t.state)
}

// Getchar returns a single character. Newlines are encoded with a single LF
// ('\n').
func (t *Terminal) Getchar() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(t.in, b[:]); err != nil {
		return 0, err
	}
	if b[0] == '\r' {
		return '\n', nil
	}
	return b[0], nil
}

// Putchar writes a single character to the terminal. Newlines are expected to
// be encoded as LF symbols ('\n').
func (t *Terminal) Putchar(ch byte) {
	if ch == '\n' {
		// Terminals expect CRLF.
		t.Putchar('\r')
	}
	b := [1]byte{ch}
	t.out.Write(b[:])
}

// Print writes s with CRLF newlines.
func (t *Terminal) Print(s string) {
	for i := 0; i < len(s); i++ {
		t.Putchar(s[i])
	}
}

// ReadLine reads and echoes characters up to a newline and returns them
// without it. Backspace removes the last character.
func (t *Terminal) ReadLine() (string, error) {
	var line []byte
	for {
		ch, err := t.Getchar()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}
		switch ch {
		case CtrlC, CtrlD, CtrlX:
			t.Putchar('\n')
			return "", ErrInterrupted
		case '\n':
			t.Putchar('\n')
			return string(line), nil
		case Backspace, '\b':
			if len(line) > 0 {
				line = line[:len(line)-1]
				t.Print("\b \b")
			}
		default:
			t.Putchar(ch)
			line = append(line, ch)
		}
	}
}
