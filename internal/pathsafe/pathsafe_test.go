package pathsafe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohits-web03/edudrive/internal/apperr"
)

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	ae := apperr.From(err)
	require.NotNil(t, ae)
	reason, _ := ae.Details["reason"].(string)
	return reason
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		reason string
	}{
		{name: "simple", input: "docs/notes.txt", want: "docs/notes.txt"},
		{name: "trimmed", input: "  docs/a  ", want: "docs/a"},
		{name: "backslashes normalized", input: `docs\term1\a.pdf`, want: "docs/term1/a.pdf"},
		{name: "spaces and dashes", input: "My Files/week-1_draft", want: "My Files/week-1_draft"},
		{name: "empty", input: "", reason: ReasonEmpty},
		{name: "whitespace only", input: "   ", reason: ReasonEmpty},
		{name: "traversal", input: "docs/../etc", reason: ReasonTraversal},
		{name: "bare traversal", input: "..", reason: ReasonTraversal},
		{name: "leading slash", input: "/etc/passwd", reason: ReasonAbsolute},
		{name: "leading backslash", input: `\windows`, reason: ReasonAbsolute},
		{name: "null byte", input: "a\x00b", reason: ReasonNullByte},
		{name: "invalid characters", input: "docs/<script>", reason: ReasonInvalidCharacters},
		{name: "parentheses not allowed in paths", input: "docs/a (1)", reason: ReasonInvalidCharacters},
		{name: "consecutive slashes", input: "docs//a", reason: ReasonConsecutiveSlash},
		{name: "too long", input: strings.Repeat("a", 256), reason: ReasonTooLong},
		{name: "max length", input: strings.Repeat("a", 255), want: strings.Repeat("a", 255)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePath(tt.input)
			if tt.reason != "" {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.InvalidPath))
				assert.Equal(t, tt.reason, reasonOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePath_AlwaysRejectsUnsafeMarkers(t *testing.T) {
	bodies := []string{"a", "docs/x", "x y", "a-b_c.d", ""}
	for _, body := range bodies {
		for _, bad := range []string{
			body + "..",
			".." + body,
			"/" + body,
			body + "\x00",
		} {
			_, err := ValidatePath(bad)
			assert.Error(t, err, "expected %q to be rejected", bad)
		}
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		reason string
	}{
		{name: "file with extension", input: "report.pdf", want: "report.pdf"},
		{name: "parentheses allowed", input: "report (1).pdf", want: "report (1).pdf"},
		{name: "trimmed", input: "  notes  ", want: "notes"},
		{name: "empty", input: "", reason: ReasonEmpty},
		{name: "whitespace", input: "\t ", reason: ReasonEmpty},
		{name: "slash", input: "a/b", reason: ReasonSeparator},
		{name: "backslash", input: `a\b`, reason: ReasonSeparator},
		{name: "dot dot", input: "..", reason: ReasonTraversal},
		{name: "CON", input: "CON", reason: ReasonReserved},
		{name: "con lowercase", input: "con", reason: ReasonReserved},
		{name: "Com1 mixed case", input: "Com1", reason: ReasonReserved},
		{name: "lpt9", input: "lpt9", reason: ReasonReserved},
		{name: "reserved stem", input: "nul.txt", reason: ReasonReserved},
		{name: "reserved prefix only", input: "console.txt", want: "console.txt"},
		{name: "COM10 is not reserved", input: "COM10", want: "COM10"},
		{name: "invalid characters", input: "naïve.txt", reason: ReasonInvalidCharacters},
		{name: "colon", input: "a:b", reason: ReasonInvalidCharacters},
		{name: "too long", input: strings.Repeat("n", 256), reason: ReasonTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName(tt.input)
			if tt.reason != "" {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.InvalidName))
				assert.Equal(t, tt.reason, reasonOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPath(t *testing.T) {
	assert.Equal(t, "a/b/c", BuildPath("a", "b", "c"))
	assert.Equal(t, "a/c", BuildPath(" a ", "", "  ", "c"))
	assert.Equal(t, "a/b", BuildPath("/a/", "/b"))
	assert.Equal(t, "a/b/c", BuildPath("a//b", "c"))
	assert.Equal(t, "", BuildPath())
	assert.Equal(t, "", BuildPath("", " "))
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Split("a/b/"))
	assert.Nil(t, Split(""))
}
