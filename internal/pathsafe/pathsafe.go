// Package pathsafe validates user-supplied relative paths and single name
// components before they reach the drive tree or the blob store.
package pathsafe

import (
	"regexp"
	"strings"

	"github.com/rohits-web03/edudrive/internal/apperr"
)

const MaxLength = 255

// Failure reasons reported in details["reason"].
const (
	ReasonEmpty             = "empty"
	ReasonTraversal         = "directory traversal"
	ReasonAbsolute          = "absolute path"
	ReasonNullByte          = "null byte"
	ReasonInvalidCharacters = "invalid characters"
	ReasonConsecutiveSlash  = "consecutive slashes"
	ReasonTooLong           = "too long"
	ReasonSeparator         = "path separator in name"
	ReasonReserved          = "reserved name"
)

var (
	pathChars = regexp.MustCompile(`^[A-Za-z0-9 _\-./]+$`)
	nameChars = regexp.MustCompile(`^[A-Za-z0-9 _\-.()]+$`)
	slashRuns = regexp.MustCompile(`/{2,}`)
)

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

func invalidPath(reason string) error {
	return apperr.New(apperr.InvalidPath, "Invalid path: "+reason).
		WithDetails(map[string]any{"reason": reason})
}

func invalidName(reason string) error {
	return apperr.New(apperr.InvalidName, "Invalid name: "+reason).
		WithDetails(map[string]any{"reason": reason})
}

// ValidatePath checks a root-relative path and returns it trimmed with
// backslashes normalized to forward slashes.
func ValidatePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	switch {
	case trimmed == "":
		return "", invalidPath(ReasonEmpty)
	case strings.ContainsRune(trimmed, 0):
		return "", invalidPath(ReasonNullByte)
	case strings.Contains(trimmed, ".."):
		return "", invalidPath(ReasonTraversal)
	case strings.HasPrefix(trimmed, "/"), strings.HasPrefix(trimmed, `\`):
		return "", invalidPath(ReasonAbsolute)
	}

	normalized := strings.ReplaceAll(trimmed, `\`, "/")
	if !pathChars.MatchString(normalized) {
		return "", invalidPath(ReasonInvalidCharacters)
	}
	if strings.Contains(normalized, "//") {
		return "", invalidPath(ReasonConsecutiveSlash)
	}
	if len(normalized) > MaxLength {
		return "", invalidPath(ReasonTooLong)
	}
	return normalized, nil
}

// ValidateName checks a single path component and returns it trimmed.
// Reserved device names are rejected both bare and as the stem of NAME.ext.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return "", invalidName(ReasonEmpty)
	case strings.ContainsAny(trimmed, `/\`):
		return "", invalidName(ReasonSeparator)
	case strings.Contains(trimmed, ".."):
		return "", invalidName(ReasonTraversal)
	case strings.ContainsRune(trimmed, 0):
		return "", invalidName(ReasonNullByte)
	}

	if isReserved(trimmed) {
		return "", invalidName(ReasonReserved)
	}
	if !nameChars.MatchString(trimmed) {
		return "", invalidName(ReasonInvalidCharacters)
	}
	if len(trimmed) > MaxLength {
		return "", invalidName(ReasonTooLong)
	}
	return trimmed, nil
}

func isReserved(name string) bool {
	upper := strings.ToUpper(name)
	if _, ok := reservedNames[upper]; ok {
		return true
	}
	if stem, _, found := strings.Cut(upper, "."); found {
		_, ok := reservedNames[strings.TrimSpace(stem)]
		return ok
	}
	return false
}

// BuildPath joins the non-empty trimmed components with "/", collapsing
// repeated slashes and stripping any leading slash.
func BuildPath(components ...string) string {
	parts := make([]string, 0, len(components))
	for _, c := range components {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	joined := slashRuns.ReplaceAllString(strings.Join(parts, "/"), "/")
	return strings.TrimLeft(joined, "/")
}

// Split breaks a validated path into its components.
func Split(path string) []string {
	var out []string
	for _, p := range strings.Split(path, "/") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
