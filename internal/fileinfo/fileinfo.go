// Package fileinfo gathers the file-level facts about an analyzed script:
// its hashes, filesystem metadata, a file-type label and whether it parses
// as a shell program.
package fileinfo

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Hashes are hex digests of the raw bytes.
type Hashes struct {
	MD5    string `json:"md5"`
	SHA256 string `json:"sha256"`
	SHA1   string `json:"sha1"`
}

// Hash digests raw.
func Hash(raw []byte) Hashes {
	m := md5.Sum(raw)
	s256 := sha256.Sum256(raw)
	s1 := sha1.Sum(raw)
	return Hashes{
		MD5:    hex.EncodeToString(m[:]),
		SHA256: hex.EncodeToString(s256[:]),
		SHA1:   hex.EncodeToString(s1[:]),
	}
}

// Metadata is the metadata section. Filesystem fields are empty for
// scripts that were never on disk.
type Metadata struct {
	Filename    string       `json:"filename"`
	Filepath    string       `json:"filepath,omitempty"`
	SizeBytes   int64        `json:"size_bytes"`
	Permissions string       `json:"permissions,omitempty"`
	Created     string       `json:"created,omitempty"`
	Modified    string       `json:"modified,omitempty"`
	FileType    string       `json:"file_type"`
	ShellSyntax *ShellSyntax `json:"shell_syntax,omitempty"`
}

// Stat reads filesystem metadata for path. content is used to refine the
// file-type label and may be nil.
func Stat(path string, content []byte) (Metadata, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Metadata{
		Filename:    filepath.Base(path),
		Filepath:    path,
		SizeBytes:   fi.Size(),
		Permissions: fmt.Sprintf("%03o", fi.Mode().Perm()),
		Created:     ISOTime(changeTime(fi)),
		Modified:    ISOTime(fi.ModTime()),
		FileType:    TypeOf(path, content),
	}, nil
}

// FromBytes builds metadata for a script that only exists in memory.
func FromBytes(name string, content []byte) Metadata {
	return Metadata{
		Filename:  filepath.Base(name),
		SizeBytes: int64(len(content)),
		FileType:  TypeOf(name, content),
	}
}

var extensionTypes = map[string]string{
	".sh":   "Bourne-Again shell script",
	".bash": "Bash shell script",
	".py":   "Python script",
	".js":   "JavaScript source",
	".exe":  "PE32 executable",
	".elf":  "ELF executable",
	".pl":   "Perl script",
	".rb":   "Ruby script",
}

var interpreterTypes = map[string]string{
	"sh":      "POSIX shell script",
	"dash":    "POSIX shell script",
	"ash":     "POSIX shell script",
	"bash":    "Bash shell script",
	"zsh":     "Zsh script",
	"ksh":     "Korn shell script",
	"python":  "Python script",
	"python2": "Python script",
	"python3": "Python script",
	"perl":    "Perl script",
	"ruby":    "Ruby script",
	"node":    "JavaScript source",
}

// TypeOf labels a file by its extension. When the extension is not known
// and content starts with a recognised shebang, the interpreter decides.
func TypeOf(name string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t, ok := interpreterTypes[Interpreter(content)]; ok {
		return t
	}
	return "Unknown" + ext
}

// Interpreter returns the program named by a "#!" first line, resolving
// "/usr/bin/env prog". It returns "" when there is no shebang.
func Interpreter(content []byte) string {
	if !bytes.HasPrefix(content, []byte("#!")) {
		return ""
	}
	line := content[2:]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return ""
	}
	prog := filepath.Base(fields[0])
	if prog == "env" {
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "-") {
				return filepath.Base(f)
			}
		}
		return ""
	}
	return prog
}

// IsShell reports whether a file-type label names a shell language.
func IsShell(fileType string) bool {
	return strings.Contains(fileType, "shell") || strings.HasPrefix(fileType, "Zsh")
}

// ISOTime renders t as ISO-8601 without a zone offset, with microseconds,
// omitting the fraction when it is zero.
func ISOTime(t time.Time) string {
	if t.Nanosecond()/1000 == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02T15:04:05.000000")
}
