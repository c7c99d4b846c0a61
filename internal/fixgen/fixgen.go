// Package fixgen produces candidate fixes for compilation problems that
// the pattern store could not resolve. The production implementation
// calls the Anthropic API; tests use the scriptable stub.
package fixgen

import (
	"context"
	"errors"
	"time"
)

// ErrNoFix is returned when the generator produced no usable change:
// an empty response or code identical to the input.
var ErrNoFix = errors.New("generator returned no usable fix")

// Request describes one problem to fix.
type Request struct {
	// File is the path of the broken file, for prompt context only
	File string
	// Code is the current content of the broken file
	Code string
	// ErrorMessage is the raw diagnostic from the build
	ErrorMessage string
	// Context carries extra hints (surrounding declarations, project notes)
	Context string
	// Language names the source language ("java", "go", "kotlin")
	Language string
}

// Result is one candidate fix.
type Result struct {
	// FixedCode is the full replacement content for the file
	FixedCode string
	// Explanation describes what was changed and why
	Explanation string
}

// Generator produces fixes for build problems.
type Generator interface {
	GenerateFix(ctx context.Context, req Request) (*Result, error)
}

// Stub is a scriptable generator for tests. Fn takes priority; otherwise
// Result/Err are returned as-is after Delay.
type Stub struct {
	Result *Result
	Err    error
	Delay  time.Duration
	Fn     func(req Request) (*Result, error)

	// Calls counts invocations
	Calls int
}

// GenerateFix returns the scripted response, honoring context cancellation
// during the configured delay.
func (s *Stub) GenerateFix(ctx context.Context, req Request) (*Result, error) {
	s.Calls++

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.Fn != nil {
		return s.Fn(req)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result == nil {
		return nil, ErrNoFix
	}
	return s.Result, nil
}
