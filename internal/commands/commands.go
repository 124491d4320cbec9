// Package commands counts well-known shell commands in a script and groups
// them into coarse semantic categories (network, file_ops, system, package,
// process, user).
package commands

import (
	"bytes"
	"encoding/json"
	"regexp"
)

// Category is a named group of command tokens.
type Category struct {
	Name     string
	Commands []string
}

// Categories is the fixed, ordered category table.
var Categories = []Category{
	{Name: "network", Commands: []string{"curl", "wget", "nc", "netcat", "telnet", "ssh", "scp", "ftp"}},
	{Name: "file_ops", Commands: []string{"rm", "mv", "cp", "chmod", "chown", "dd", "shred"}},
	{Name: "system", Commands: []string{"systemctl", "service", "crontab", "kill", "pkill"}},
	{Name: "package", Commands: []string{"apt", "apt-get", "yum", "dnf", "pip", "npm"}},
	{Name: "process", Commands: []string{"ps", "top", "nohup", "bg", "fg", "jobs"}},
	{Name: "user", Commands: []string{"useradd", "usermod", "passwd", "su", "sudo"}},
}

// Count is one detected command and how often it occurs.
type Count struct {
	Command string `json:"command"`
	Count   int    `json:"count"`
}

// Group is the detections for one category.
type Group struct {
	Category string
	Commands []Count
}

// Detected is the commands_detected section: only categories with at least
// one detected command, in table order. It serializes as a JSON object that
// keeps that order.
type Detected []Group

// Lookup returns the counts recorded for category, if any.
func (d Detected) Lookup(category string) ([]Count, bool) {
	for _, g := range d {
		if g.Category == category {
			return g.Commands, true
		}
	}
	return nil, false
}

// MarshalJSON writes {"category": [{"command":..,"count":..}], ...}.
func (d Detected) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g.Category)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(g.Commands)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type compiledCategory struct {
	name     string
	commands []string
	patterns []*regexp.Regexp
}

var compiled = compileCategories(Categories)

func compileCategories(cats []Category) []compiledCategory {
	out := make([]compiledCategory, len(cats))
	for i, c := range cats {
		cc := compiledCategory{name: c.Name, commands: c.Commands}
		for _, cmd := range c.Commands {
			cc.patterns = append(cc.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(cmd)+`\b`))
		}
		out[i] = cc
	}
	return out
}

// Detect counts whole-word, case-sensitive occurrences of every command
// token in text.
func Detect(text string) Detected {
	detected := Detected{}
	for _, c := range compiled {
		var found []Count
		for i, re := range c.patterns {
			if n := len(re.FindAllStringIndex(text, -1)); n > 0 {
				found = append(found, Count{Command: c.commands[i], Count: n})
			}
		}
		if len(found) > 0 {
			detected = append(detected, Group{Category: c.name, Commands: found})
		}
	}
	return detected
}
