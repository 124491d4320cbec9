package testdata

// ===========================================================================
// Benign scripts: everyday developer and operator automation
// ===========================================================================

// BenignCases must rate Safe.
var BenignCases = []TestCase{
	{
		ID:               "TN-HELLO-001",
		Script:           "#!/bin/bash\necho hello\n",
		ExpectedCategory: "Safe",
		ExpectedFamilies: []string{},
		Classification:   "TN",
		Description:      `Trivial script. No family or behavior may fire.`,
		Tags:             []string{"canonical"},
	},
	{
		ID: "TN-BUILD-001",
		Script: `#!/bin/bash
set -euo pipefail
go build ./...
go test ./...
mkdir -p dist
cp bin/app dist/
echo done
`,
		ExpectedCategory: "Safe",
		ExpectedFamilies: []string{},
		Classification:   "TN",
		Description:      `CI build script.`,
		Tags:             []string{"common-dev-operation"},
	},
	{
		ID: "TN-BACKUP-001",
		Script: `#!/bin/bash
SRC=/home/app/data
DEST=/backup/$(date +%F)
mkdir -p "$DEST"
tar czf "$DEST/data.tgz" "$SRC"
find /backup -mtime +30 -delete
`,
		ExpectedCategory: "Safe",
		ExpectedFamilies: []string{},
		Classification:   "TN",
		Description: `Nightly backup with retention pruning. Deletes files,
			but through find rather than rm -rf on a root path.`,
		Tags: []string{"common-dev-operation"},
	},
	{
		ID: "TN-INSTALL-001",
		Script: `#!/bin/sh
# fetch release tarball and verify
curl -fsSL https://example.com/tool.tar.gz -o tool.tar.gz
sha256sum -c tool.sha256
tar xzf tool.tar.gz
`,
		ExpectedCategory: "Safe",
		ExpectedFamilies: []string{"network_operations"},
		Classification:   "TN",
		Description: `Verified download. curl counts as network activity and a
			download, but nothing executes the fetched file.`,
		Tags: []string{"common-dev-operation"},
	},
	{
		ID: "TN-LOOP-001",
		Script: `#!/bin/bash
for f in *.log; do
  gzip "$f"
done
`,
		ExpectedCategory: "Safe",
		ExpectedFamilies: []string{},
		Classification:   "TN",
		Description:      `Log compression loop.`,
		Tags:             []string{"common-dev-operation"},
	},
}
