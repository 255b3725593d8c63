package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Constraint is a parsed version constraint expression.
// Comma-separated groups are alternatives; a candidate satisfying any single
// group is eligible. Within a group, space-separated comparator terms must
// all hold, e.g. ">=4.0.0 <5.0.0". An empty expression or a lone '*'
// matches every candidate.
type Constraint struct {
	groups [][]term
	raw    string
}

type comparator int

const (
	cmpEq comparator = iota
	cmpGt
	cmpGte
	cmpLt
	cmpLte
	cmpTilde
)

// term is a single comparator applied to a partially specified version.
// parts holds the numeric components that were written out; wildcard marks
// a trailing '*' (or 'x') component. Components left unwritten behave like
// wildcards for equality terms and like zeroes for relational terms.
type term struct {
	cmp      comparator
	parts    []int
	wildcard bool
}

// ParseConstraint parses a constraint expression into its evaluable form.
func ParseConstraint(expr string) (Constraint, error) {
	cst := Constraint{raw: strings.TrimSpace(expr)}
	if cst.raw == "" {
		return cst, nil
	}

	for _, alternative := range strings.Split(cst.raw, ",") {
		fields := strings.Fields(alternative)
		if len(fields) == 0 {
			// tolerate stray commas from constraint aggregation
			continue
		}

		group := make([]term, 0, len(fields))
		for _, field := range fields {
			trm, err := parseTerm(field)
			if err != nil {
				return Constraint{}, err
			}
			group = append(group, trm)
		}

		cst.groups = append(cst.groups, group)
	}

	return cst, nil
}

// String returns the raw constraint expression.
func (c Constraint) String() string {
	return c.raw
}

// Match reports whether the candidate version satisfies the constraint.
func (c Constraint) Match(v Version) bool {
	if len(c.groups) == 0 {
		return true
	}

	for _, group := range c.groups {
		if matchGroup(group, v) {
			return true
		}
	}

	return false
}

func matchGroup(group []term, v Version) bool {
	for _, trm := range group {
		if !trm.match(v) {
			return false
		}
	}
	return true
}

func parseTerm(text string) (term, error) {
	trm := term{cmp: cmpEq}

	switch {
	case strings.HasPrefix(text, ">="):
		trm.cmp, text = cmpGte, text[2:]
	case strings.HasPrefix(text, "<="):
		trm.cmp, text = cmpLte, text[2:]
	case strings.HasPrefix(text, ">"):
		trm.cmp, text = cmpGt, text[1:]
	case strings.HasPrefix(text, "<"):
		trm.cmp, text = cmpLt, text[1:]
	case strings.HasPrefix(text, "~"):
		trm.cmp, text = cmpTilde, text[1:]
	case strings.HasPrefix(text, "="):
		text = text[1:]
	}

	text = strings.TrimPrefix(text, "v")
	if text == "" {
		return term{}, fmt.Errorf("constraint term with no version")
	}

	for _, component := range strings.Split(text, ".") {
		if component == "*" || component == "x" || component == "X" {
			// everything after a wildcard component is irrelevant
			trm.wildcard = true
			break
		}

		num, err := strconv.Atoi(component)
		if err != nil {
			return term{}, fmt.Errorf("invalid constraint term %q", text)
		}
		trm.parts = append(trm.parts, num)
	}

	if len(trm.parts) > 3 {
		return term{}, fmt.Errorf("invalid constraint term %q", text)
	}

	return trm, nil
}

func (t term) match(v Version) bool {
	switch t.cmp {
	case cmpEq:
		return t.matchPrefix(v)

	case cmpTilde:
		if len(t.parts) == 0 {
			return true
		}
		if compareParts(v, t.filled()) < 0 {
			return false
		}
		return compareParts(v, tildeUpper(t.parts)) < 0

	default:
		diff := compareParts(v, t.filled())
		switch t.cmp {
		case cmpGt:
			return diff > 0
		case cmpGte:
			return diff >= 0
		case cmpLt:
			return diff < 0
		case cmpLte:
			return diff <= 0
		}
	}

	return false
}

// matchPrefix checks every explicitly written component against the
// candidate; unwritten and wildcard components match anything, so "4.1"
// behaves like "4.1.*" and "4.0.0" is an exact match.
func (t term) matchPrefix(v Version) bool {
	components := [3]int{v.Major, v.Minor, v.Patch}
	for i, part := range t.parts {
		if components[i] != part {
			return false
		}
	}
	return true
}

// filled pads the written components with zeroes up to major.minor.patch.
func (t term) filled() [3]int {
	var full [3]int
	copy(full[:], t.parts)
	return full
}

// tildeUpper computes the exclusive upper bound for a tilde term: patch
// level increases stay within the same minor, so ~4.1.2 allows up to but
// not including 4.2.0. With only a major written, the bound is the next
// major instead.
func tildeUpper(parts []int) [3]int {
	if len(parts) >= 2 {
		return [3]int{parts[0], parts[1] + 1, 0}
	}
	return [3]int{parts[0] + 1, 0, 0}
}

func compareParts(v Version, parts [3]int) int {
	components := [3]int{v.Major, v.Minor, v.Patch}
	for i := range components {
		switch {
		case components[i] > parts[i]:
			return 1
		case components[i] < parts[i]:
			return -1
		}
	}
	return 0
}
