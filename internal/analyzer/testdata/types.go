package testdata

// TestCase is a single script scenario for detection accuracy validation.
//
// Naming convention for IDs:
//
//	TP-<CATEGORY>-<NNN>  True Positive: malicious script correctly flagged
//	TN-<CATEGORY>-<NNN>  True Negative: benign script correctly rated Safe
//	FP-<CATEGORY>-<NNN>  False Positive: benign script incorrectly flagged
//	FN-<CATEGORY>-<NNN>  False Negative: malicious script missed
type TestCase struct {
	// ID is a unique identifier (e.g., "TP-DROPPER-001").
	ID string

	// Script is the full script body to analyze.
	Script string

	// ExpectedCategory is the risk category: "Safe", "Suspicious", "Malicious".
	ExpectedCategory string

	// ExpectedFamilies lists the threat families that must match, in
	// catalog order. Nil skips the check.
	ExpectedFamilies []string

	// Classification is "TP", "TN", "FP" or "FN". FP and FN cases document
	// known limitations and are skipped by the accuracy runner.
	Classification string

	// Description explains what the script does and why the expected
	// category is correct. For FN/FP cases, say what detection is missing.
	Description string

	// Tags for filtering: "canonical", "botnet", "known-gap", "evasion",
	// "encoding", "common-dev-operation", "boundary".
	Tags []string
}

// AllClassifications is the set of valid Classification values.
var AllClassifications = []string{"TP", "TN", "FP", "FN"}
