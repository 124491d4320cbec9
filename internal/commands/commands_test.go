package commands

import (
	"encoding/json"
	"testing"
)

func TestDetect_CountsAndCategories(t *testing.T) {
	script := "#!/bin/sh\ncurl -O http://x/a\ncurl http://x/b\nchmod +x a\nsudo ./a\n"
	d := Detect(script)

	network, ok := d.Lookup("network")
	if !ok {
		t.Fatal("expected network category")
	}
	if len(network) != 1 || network[0].Command != "curl" || network[0].Count != 2 {
		t.Errorf("network = %+v, want curl x2", network)
	}

	fileOps, ok := d.Lookup("file_ops")
	if !ok || len(fileOps) != 1 || fileOps[0].Command != "chmod" {
		t.Errorf("file_ops = %+v, want chmod", fileOps)
	}

	user, ok := d.Lookup("user")
	if !ok || len(user) != 1 || user[0].Command != "sudo" {
		t.Errorf("user = %+v, want sudo", user)
	}

	for _, empty := range []string{"system", "package", "process"} {
		if _, ok := d.Lookup(empty); ok {
			t.Errorf("category %q has no matches and must be omitted", empty)
		}
	}
}

func TestDetect_WordBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		category string
		command  string
		want     int
	}{
		{"rm inside identifier is not counted", "confirm=1; rmdir x; format", "file_ops", "rm", 0},
		{"rm as a word", "rm -f x; rm y", "file_ops", "rm", 2},
		{"ps inside word", "https://example.com/psalm", "process", "ps", 0},
		{"nc after punctuation", "x;nc -l 4444", "network", "nc", 1},
		{"apt-get counts apt too", "apt-get install -y x", "package", "apt", 1},
		{"apt-get itself", "apt-get install -y x", "package", "apt-get", 1},
		{"case sensitive", "CURL http://x", "network", "curl", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Detect(tt.script)
			got := 0
			if counts, ok := d.Lookup(tt.category); ok {
				for _, c := range counts {
					if c.Command == tt.command {
						got = c.Count
					}
				}
			}
			if got != tt.want {
				t.Errorf("count(%s) = %d, want %d", tt.command, got, tt.want)
			}
		})
	}
}

func TestDetected_MarshalJSONKeepsOrder(t *testing.T) {
	d := Detect("sudo rm -rf /tmp/x && curl http://x")
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"network":[{"command":"curl","count":1}],"file_ops":[{"command":"rm","count":1}],"user":[{"command":"sudo","count":1}]}`
	if string(data) != want {
		t.Errorf("got  %s\nwant %s", data, want)
	}
}

func TestDetected_EmptyMarshalsAsObject(t *testing.T) {
	data, err := json.Marshal(Detect("echo hello"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("expected {}, got %s", data)
	}
}
