// Package redact masks credentials in text taken from analyzed scripts
// before it is written to logs.
package redact

import (
	"regexp"
)

type rule struct {
	name    string
	pattern *regexp.Regexp
	// keep is a replacement template preserving a leading group; empty
	// means the whole match is replaced.
	keep string
}

var rules = []rule{
	// Cloud and SaaS tokens
	{name: "aws-assignment", pattern: regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`)},
	{name: "aws-key-id", pattern: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{name: "github-assignment", pattern: regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`)},
	{name: "github-token", pattern: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`)},
	{name: "slack-token", pattern: regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`)},
	{name: "stripe-key", pattern: regexp.MustCompile(`[sr]k_live_[0-9a-zA-Z]{24}`)},
	{name: "api-key-assignment", pattern: regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`)},
	{name: "private-key", pattern: regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`)},
	{name: "bearer", pattern: regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`)},

	// Credentials passed on a command line
	{name: "url-userinfo", pattern: regexp.MustCompile(`(https?|ftp)://[^\s:/@]+:[^\s@/]+@`), keep: "${1}://[REDACTED]@"},
	{name: "curl-user", pattern: regexp.MustCompile(`(\s(?:-u|--user)\s+)[^\s:]+:\S+`), keep: "${1}[REDACTED]"},
	{name: "sshpass", pattern: regexp.MustCompile(`(sshpass\s+-p\s*)\S+`), keep: "${1}[REDACTED]"},
	{name: "mysql-password", pattern: regexp.MustCompile(`(mysql(?:dump)?\b[^\n]*?\s-p)[^\s-]\S*`), keep: "${1}[REDACTED]"},
	{name: "password-assignment", pattern: regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`)},
}

const redactedPlaceholder = "[REDACTED]"

// Redact masks every credential pattern in input.
func Redact(input string) string {
	result := input
	for _, r := range rules {
		repl := r.keep
		if repl == "" {
			repl = redactedPlaceholder
		}
		result = r.pattern.ReplaceAllString(result, repl)
	}
	return result
}

// RedactAll applies Redact to each element, returning a new slice. A nil
// slice stays nil.
func RedactAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Redact(s)
	}
	return out
}
