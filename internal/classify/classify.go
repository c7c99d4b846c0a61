// Package classify turns raw compiler diagnostics into normalized,
// comparable error signatures. Normalization strips the volatile parts of a
// message (numbers, quoted literals, file paths) so that two occurrences of
// the same underlying error compare equal, and classification maps the
// message onto a small finite set of error types using ordered keyword
// rules.
package classify

import (
	"regexp"
	"strings"

	"github.com/X-Niter/ModForge-sub004/internal/types"
)

var (
	quotedLiteralRe = regexp.MustCompile("'[^']*'|\"[^\"]*\"|`[^`]*`")
	pathRe          = regexp.MustCompile(`(?:[A-Za-z]:)?[/\\][^\s:;,'"]+`)
	numberRe        = regexp.MustCompile(`\b\d+\b`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	tokenSplitRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// rule is one ordered classification rule. The first rule whose every
// keyword appears in the lowercased message wins.
type rule struct {
	keywords []string
	errType  types.ErrorType
}

// Rules are checked in order; more specific rules come first so that e.g.
// "constructor ... cannot be applied" classifies as a constructor problem
// rather than a generic type mismatch.
var rules = []rule{
	{[]string{"abstract method", "not implemented"}, types.ErrorTypeAbstractMethodNotImplemented},
	{[]string{"does not override abstract method"}, types.ErrorTypeAbstractMethodNotImplemented},
	{[]string{"constructor", "cannot be applied"}, types.ErrorTypeConstructorNotFound},
	{[]string{"no suitable constructor"}, types.ErrorTypeConstructorNotFound},
	{[]string{"constructor", "not found"}, types.ErrorTypeConstructorNotFound},
	{[]string{"method", "cannot be applied"}, types.ErrorTypeMethodArgumentMismatch},
	{[]string{"argument mismatch"}, types.ErrorTypeMethodArgumentMismatch},
	{[]string{"wrong number of arguments"}, types.ErrorTypeMethodArgumentMismatch},
	{[]string{"no suitable method"}, types.ErrorTypeMethodNotFound},
	{[]string{"cannot find method"}, types.ErrorTypeMethodNotFound},
	{[]string{"method", "not found"}, types.ErrorTypeMethodNotFound},
	{[]string{"cannot find symbol"}, types.ErrorTypeSymbolNotFound},
	{[]string{"cannot resolve symbol"}, types.ErrorTypeSymbolNotFound},
	{[]string{"undefined:"}, types.ErrorTypeSymbolNotFound},
	{[]string{"undeclared identifier"}, types.ErrorTypeSymbolNotFound},
	{[]string{"incompatible types"}, types.ErrorTypeTypeMismatch},
	{[]string{"inconvertible types"}, types.ErrorTypeTypeMismatch},
	{[]string{"cannot use", "as", "value"}, types.ErrorTypeTypeMismatch},
	{[]string{"type mismatch"}, types.ErrorTypeTypeMismatch},
	{[]string{"duplicate"}, types.ErrorTypeDuplicateDefinition},
	{[]string{"already defined"}, types.ErrorTypeDuplicateDefinition},
	{[]string{"redeclared"}, types.ErrorTypeDuplicateDefinition},
	{[]string{"unreported exception"}, types.ErrorTypeUncaughtException},
	{[]string{"unhandled exception"}, types.ErrorTypeUncaughtException},
	{[]string{"must be caught or declared"}, types.ErrorTypeUncaughtException},
	{[]string{"missing return"}, types.ErrorTypeMissingReturn},
	{[]string{"missing a return statement"}, types.ErrorTypeMissingReturn},
}

// stopWords are filtered out of keyword extraction. Matches the usual
// diagnostic filler that carries no identity.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "not": true, "have": true, "has": true,
	"error": true, "exception": true, "caused": true, "found": true,
	"line": true, "column": true, "file": true, "code": true, "cannot": true,
}

// Normalize rewrites a diagnostic message into its comparable form:
// quoted literals become 'X', paths become PATH, bare numbers become N,
// and the result is lowercased with collapsed whitespace.
func Normalize(message string) string {
	s := quotedLiteralRe.ReplaceAllString(message, "'X'")
	s = pathRe.ReplaceAllString(s, "PATH")
	s = numberRe.ReplaceAllString(s, "N")
	s = strings.ToLower(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Classify maps a raw message onto an error type. The first rule whose
// keywords all appear wins; a message matching no rule is ErrorTypeOther.
// Classification never fails.
func Classify(message string) types.ErrorType {
	lower := strings.ToLower(message)
	for _, r := range rules {
		matched := true
		for _, kw := range r.keywords {
			if !strings.Contains(lower, kw) {
				matched = false
				break
			}
		}
		if matched {
			return r.errType
		}
	}
	return types.ErrorTypeOther
}

// Tokens splits a normalized message into its significant tokens.
// The same tokenizer feeds both keyword extraction and similarity scoring,
// so pattern and query tokens always agree.
func Tokens(normalized string) []string {
	parts := tokenSplitRe.Split(strings.ToLower(normalized), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// keywords extracts the identity-bearing tokens from a normalized message:
// tokens longer than three characters that are not stop words.
func keywords(normalized string) []string {
	var out []string
	for _, tok := range Tokens(normalized) {
		if len(tok) > 3 && !stopWords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// NewSignature derives the normalized signature for a problem.
func NewSignature(p types.Problem) types.Signature {
	norm := Normalize(p.Message)
	return types.Signature{
		File:       p.File,
		Line:       p.Line,
		Column:     p.Column,
		Message:    p.Message,
		Normalized: norm,
		Type:       Classify(p.Message),
		Keywords:   keywords(norm),
	}
}
