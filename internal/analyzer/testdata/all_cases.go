package testdata

// AllTestCases returns every test case.
// Used by the accuracy metrics test to compute aggregate TP/FP/FN/TN counts.
func AllTestCases() []TestCase {
	var all []TestCase
	all = append(all, DropperCases...)
	all = append(all, MinerCases...)
	all = append(all, PersistenceCases...)
	all = append(all, ReverseShellCases...)
	all = append(all, EvasionCases...)
	all = append(all, BenignCases...)
	return all
}
