package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConstraint(t *testing.T) {
	t.Run("valid expressions", func(t *testing.T) {
		for _, expr := range []string{
			"",
			"*",
			"4.0.0",
			"=4.0.0",
			"v4.0.0",
			">=4.0.0 <5.0.0",
			"~4.1.2",
			"4.*",
			"4.x",
			">=0.10, >=4.0.0 <5.0.0, 6.*",
		} {
			_, err := ParseConstraint(expr)
			assert.NoError(t, err, "expression %q", expr)
		}
	})

	t.Run("invalid expressions", func(t *testing.T) {
		for _, expr := range []string{
			">=",
			"~",
			">=four",
			"1.2.3.4",
		} {
			_, err := ParseConstraint(expr)
			assert.Error(t, err, "expression %q", expr)
		}
	})
}

func TestConstraintMatch(t *testing.T) {
	tests := []struct {
		expr      string
		candidate string
		expected  bool
	}{
		// empty and lone wildcard match everything
		{"", "0.0.1", true},
		{"*", "99.0.0", true},

		// bare versions are exact on the written components
		{"4.0.0", "4.0.0", true},
		{"4.0.0", "4.0.1", false},
		{"4.1", "4.1.7", true},
		{"4.1", "4.2.0", false},

		// relational comparators, numeric per component
		{">=4.0.0", "4.0.0", true},
		{">=4.0.0", "3.9.9", false},
		{">4.0.0", "4.0.0", false},
		{"<=4.0.0", "4.0.0", true},
		{"<4.0.0", "4.0.0", false},
		{">=4.9.0", "4.10.0", true},

		// conjunction within a group
		{">=4.0.0 <5.0.0", "4.5.0", true},
		{">=4.0.0 <5.0.0", "5.0.0", false},
		{">=4.0.0 <5.0.0", "3.9.0", false},

		// alternatives across comma groups
		{"4.0.0, 6.0.0", "6.0.0", true},
		{"4.0.0, 6.0.0", "5.0.0", false},
		{">=0.10 <0.11, >=4.0.0", "0.10.48", true},

		// tilde allows patch increases within the minor
		{"~4.1.2", "4.1.2", true},
		{"~4.1.2", "4.1.9", true},
		{"~4.1.2", "4.2.0", false},
		{"~4.1.2", "4.1.1", false},
		{"~4", "4.9.9", true},
		{"~4", "5.0.0", false},

		// trailing wildcard components
		{"4.*", "4.8.1", true},
		{"4.*", "5.0.0", false},
		{"4.1.*", "4.1.3", true},
		{"4.1.*", "4.2.0", false},

		// leading v on the term is tolerated
		{"v4.0.0", "4.0.0", true},
	}

	for _, test := range tests {
		constraint, err := ParseConstraint(test.expr)
		require.NoError(t, err, "expression %q", test.expr)

		candidate, err := Parse(test.candidate)
		require.NoError(t, err)

		assert.Equal(
			t, test.expected, constraint.Match(candidate),
			"constraint %q candidate %q", test.expr, test.candidate,
		)
	}
}
