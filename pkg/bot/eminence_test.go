package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEminence(t *testing.T) {
	cases := map[string]Eminence{
		"":         EminenceNone,
		"none":     EminenceNone,
		"Operator": EminenceOperator,
		"MASTER":   EminenceMaster,
		" deity ":  EminenceDeity,
		"0":        EminenceNone,
		"3":        EminenceDeity,
	}
	for in, want := range cases {
		got, err := ParseEminence(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	for _, in := range []string{"emperor", "4", "-1"} {
		_, err := ParseEminence(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestEminenceOrdering(t *testing.T) {
	assert.True(t, EminenceNone < EminenceOperator)
	assert.True(t, EminenceOperator < EminenceMaster)
	assert.True(t, EminenceMaster < EminenceDeity)
	assert.Equal(t, "deity", EminenceDeity.String())
}
