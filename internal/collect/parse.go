// Package collect gathers compilation problems: a command source runs
// the build and parses its diagnostics, and a filesystem watcher
// triggers extra scans when source files change.
package collect

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// columnRe matches "file:line:col: severity: message" diagnostics
// (Go tools, clang). The severity field is optional.
var columnRe = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*(?:(error|warning|note|info):\s*)?(.+)$`)

// lineRe matches "file:line: severity: message" diagnostics (javac).
var lineRe = regexp.MustCompile(`^(.+?):(\d+):\s*(?:(error|warning|note):\s*)?(.+)$`)

// ParseDiagnostics extracts problems from build output. Lines that do
// not look like diagnostics (progress output, caret markers, javac
// summary lines) are skipped.
func ParseDiagnostics(output string) []types.Problem {
	var problems []types.Problem

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "\t") || strings.HasPrefix(line, " ") {
			continue
		}

		if p, ok := parseLine(line); ok {
			problems = append(problems, p)
		}
	}
	return problems
}

func parseLine(line string) (types.Problem, bool) {
	if m := columnRe.FindStringSubmatch(line); m != nil {
		lineNo, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		return types.Problem{
			File:     m[1],
			Line:     lineNo,
			Column:   col,
			Severity: parseSeverity(m[4]),
			Message:  m[5],
		}, true
	}

	if m := lineRe.FindStringSubmatch(line); m != nil {
		// Avoid treating "http://..." or timestamps as diagnostics;
		// require a plausible file path.
		if !looksLikeFile(m[1]) {
			return types.Problem{}, false
		}
		lineNo, _ := strconv.Atoi(m[2])
		return types.Problem{
			File:     m[1],
			Line:     lineNo,
			Severity: parseSeverity(m[3]),
			Message:  m[4],
		}, true
	}

	return types.Problem{}, false
}

func parseSeverity(s string) types.Severity {
	switch s {
	case "warning":
		return types.SeverityWarning
	case "note", "info":
		return types.SeverityInfo
	default:
		return types.SeverityError
	}
}

// looksLikeFile filters out URL-ish and prose prefixes that happen to
// match the file:line shape.
func looksLikeFile(s string) bool {
	if strings.Contains(s, "://") {
		return false
	}
	return strings.ContainsAny(s, "./\\")
}
