package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Display caps. They limit what is surfaced, not what is detected.
const (
	MaxURLs     = 20
	MaxIPs      = 20
	MaxDomains  = 20
	MaxEmails   = 10
	MaxKeywords = 10

	// MaxKeywordLength truncates each surfaced keyword string.
	MaxKeywordLength = 100
)

// Report is the strings_analysis section of an analysis result.
type Report struct {
	TotalStrings       int      `json:"total_strings"`
	URLs               []string `json:"urls_found"`
	IPAddresses        []string `json:"ip_addresses"`
	Domains            []string `json:"domains"`
	Emails             []string `json:"emails"`
	SuspiciousKeywords []string `json:"suspicious_keywords"`
}

var (
	urlPattern    = regexp.MustCompile("(?i)https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")
	ipPattern     = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)
	domainPattern = regexp.MustCompile(`\b(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}\b`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
)

// suspiciousKeywords are matched as case-insensitive substrings.
var suspiciousKeywords = []string{
	"password", "secret", "token", "api_key", "private_key",
	"exploit", "payload", "backdoor", "rootkit", "malware",
	"botnet", "ddos", "flood", "scanner",
}

// Analyze extracts the printable strings of raw and mines them for
// indicators. It is a pure function of raw.
func Analyze(raw []byte) Report {
	return AnalyzeStrings(Printable(raw))
}

// AnalyzeStrings mines already-extracted strings for indicators.
// Every indicator list is deduplicated in first-seen order and capped.
func AnalyzeStrings(all []string) Report {
	urls := newOrderedSet()
	ips := newOrderedSet()
	domains := newOrderedSet()
	emails := newOrderedSet()

	for _, s := range all {
		urls.addAll(urlPattern.FindAllString(s, -1))
		for _, ip := range ipPattern.FindAllString(s, -1) {
			if validIPv4(ip) {
				ips.add(ip)
			}
		}
		domains.addAll(domainPattern.FindAllString(strings.ToLower(s), -1))
		emails.addAll(emailPattern.FindAllString(s, -1))
	}

	return Report{
		TotalStrings:       len(all),
		URLs:               urls.first(MaxURLs),
		IPAddresses:        ips.first(MaxIPs),
		Domains:            domains.first(MaxDomains),
		Emails:             emails.first(MaxEmails),
		SuspiciousKeywords: FindKeywords(all),
	}
}

// FindKeywords returns the strings that contain a suspicious keyword, each
// truncated to MaxKeywordLength bytes, deduplicated, at most MaxKeywords.
func FindKeywords(all []string) []string {
	found := newOrderedSet()
	for _, s := range all {
		lower := strings.ToLower(s)
		for _, kw := range suspiciousKeywords {
			if strings.Contains(lower, kw) {
				found.add(truncate(s, MaxKeywordLength))
				break
			}
		}
	}
	return found.first(MaxKeywords)
}

// validIPv4 rejects dotted quads with an octet above 255.
func validIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// truncate cuts s to at most n bytes. Extracted strings are ASCII, so a
// byte cut never splits a character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (o *orderedSet) add(s string) {
	if o.seen[s] {
		return
	}
	o.seen[s] = true
	o.items = append(o.items, s)
}

func (o *orderedSet) addAll(ss []string) {
	for _, s := range ss {
		o.add(s)
	}
}

// first returns up to n items, never nil so the JSON form is [] not null.
func (o *orderedSet) first(n int) []string {
	if len(o.items) > n {
		return append([]string{}, o.items[:n]...)
	}
	return append([]string{}, o.items...)
}
