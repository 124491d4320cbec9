package fileinfo

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ShellSyntax reports whether a script parses as bash.
type ShellSyntax struct {
	Valid      bool   `json:"valid"`
	Statements int    `json:"statements"`
	Error      string `json:"error,omitempty"`
}

// ParseShell parses text with the bash grammar and counts its top-level
// statements. A parse failure is reported, not returned.
func ParseShell(text string) *ShellSyntax {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(text), "")
	if err != nil {
		return &ShellSyntax{Error: err.Error()}
	}
	return &ShellSyntax{Valid: true, Statements: len(file.Stmts)}
}
