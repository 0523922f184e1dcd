package rawterm

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestReadLine(t *testing.T) {
	tests := []struct {
		in   string
		line string
		err  error
		echo string
	}{
		{"hello\r", "hello", nil, "hello\r\n"},
		{"hello\n", "hello", nil, "hello\r\n"},
		{"helo\x7flo\r", "hello", nil, "helo\b \blo\r\n"},
		{"\x7fa\r", "a", nil, "a\r\n"},
		{"abc\x18", "", ErrInterrupted, "abc\r\n"},
		{"tail", "tail", nil, "tail"},
		{"", "", io.EOF, ""},
	}
	for _, tc := range tests {
		var out bytes.Buffer
		term := New(strings.NewReader(tc.in), &out)
		line, err := term.ReadLine()
		if err != tc.err {
			t.Errorf("%q: expected error %v but got %v", tc.in, tc.err, err)
		}
		if line != tc.line {
			t.Errorf("%q: expected line %q but got %q", tc.in, tc.line, line)
		}
		if out.String() != tc.echo {
			t.Errorf("%q: expected echo %q but got %q", tc.in, tc.echo, out.String())
		}
	}
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	term := New(nil, &out)
	term.Print("a\nb\n")
	if out.String() != "a\r\nb\r\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if err := term.Restore(); err != nil {
		t.Errorf("Restore on a plain terminal returned %v", err)
	}
}
