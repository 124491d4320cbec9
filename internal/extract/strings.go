// Package extract pulls printable strings out of raw file bytes and mines
// them for network and contact indicators (URLs, IPv4 addresses, domains,
// email addresses) and suspicious keywords.
package extract

// MinStringLength is the shortest printable run kept by Printable.
const MinStringLength = 4

// Printable returns every maximal run of printable ASCII bytes (32–126)
// that is at least MinStringLength long, in input order. It behaves like
// strings(1) with -n 4.
func Printable(raw []byte) []string {
	out := []string{}
	start := -1

	for i, b := range raw {
		if b >= 32 && b <= 126 {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= MinStringLength {
			out = append(out, string(raw[start:i]))
		}
		start = -1
	}

	if start >= 0 && len(raw)-start >= MinStringLength {
		out = append(out, string(raw[start:]))
	}
	return out
}
