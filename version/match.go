package version

// BestMatch resolves a constraint against a set of candidate version strings
// and returns the highest eligible candidate by numeric ordering, normalized
// without its leading 'v'. Candidates that fail to parse are skipped rather
// than failing the whole match. The second return value is false when no
// candidate is eligible.
func BestMatch(c Constraint, candidates []string) (string, bool) {
	var (
		best  Version
		found bool
	)

	for _, raw := range candidates {
		ver, err := Parse(raw)
		if err != nil {
			continue
		}

		if !c.Match(ver) {
			continue
		}

		if !found || Compare(ver, best) > 0 {
			best, found = ver, true
		}
	}

	if !found {
		return "", false
	}

	return best.String(), true
}
