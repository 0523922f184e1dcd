package main

import (
	"encoding/hex"
	"sync"
	"unicode"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

// valueStore holds the text clients read. It is set from the main goroutine
// and read from the stack's.
type valueStore struct {
	mu sync.RWMutex
	v  string
}

func (s *valueStore) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

func (s *valueStore) Set(v string) {
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
}

// printable reports whether p is valid UTF-8 text without control
// characters other than whitespace.
func printable(p []byte) bool {
	if !utf8.Valid(p) {
		return false
	}
	for _, r := range string(p) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// displayWrite returns p as text when it is printable and as hex otherwise,
// so control sequences from a client never reach the terminal.
func displayWrite(p []byte) string {
	if printable(p) {
		return string(p)
	}
	return "hex:" + hex.EncodeToString(p)
}

// logWrite logs a client write as hex, and as text when it is printable.
func logWrite(p []byte) {
	fields := log.Fields{
		"len": len(p),
		"hex": hex.EncodeToString(p),
	}
	if printable(p) {
		fields["text"] = string(p)
	}
	log.WithFields(fields).Info("client write")
}
