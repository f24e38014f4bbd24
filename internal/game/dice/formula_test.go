package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/htbah/campaign-manager/internal/game/dice"
)

func TestParseFormula(t *testing.T) {
	cases := map[string]dice.Formula{
		"2W10+5":  {Raw: "2W10+5", Count: 2, Sides: 10, Modifier: 5},
		"W6":      {Raw: "W6", Count: 1, Sides: 6},
		"1d6-1":   {Raw: "1d6-1", Count: 1, Sides: 6, Modifier: -1},
		"3w8 + 2": {Raw: "3w8 + 2", Count: 3, Sides: 8, Modifier: 2},
	}
	for in, want := range cases {
		got, err := dice.ParseFormula(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseFormula_Errors(t *testing.T) {
	for _, in := range []string{"", "Faust", "0W6", "2W1", "2Wx", "2W6+x"} {
		_, err := dice.ParseFormula(in)
		assert.Error(t, err, "%q", in)
	}
}

func TestFormula_String(t *testing.T) {
	f, err := dice.ParseFormula("2w10+5")
	require.NoError(t, err)
	assert.Equal(t, "2W10+5", f.String())
	lo, hi := f.Range()
	assert.Equal(t, 2, lo)
	assert.Equal(t, 20, hi)
}

func TestFixedBonus(t *testing.T) {
	n, warn := dice.FixedBonus("2W10+5")
	assert.Nil(t, warn)
	assert.Equal(t, 5, n)

	n, warn = dice.FixedBonus("Keule +3 Wucht")
	assert.Nil(t, warn)
	assert.Equal(t, 3, n)

	n, warn = dice.FixedBonus("2W6+viel")
	assert.NotNil(t, warn)
	assert.Equal(t, 0, n)

	n, warn = dice.FixedBonus("Faust")
	assert.Nil(t, warn)
	assert.Equal(t, 0, n)
}

func TestComputeDamage(t *testing.T) {
	d, warn := dice.ComputeDamage("2W10+5", 12, -2)
	assert.Nil(t, warn)
	assert.Equal(t, 15, d.Total())
	assert.Equal(t, "2W10+5: 12 +5 -2 = 15", d.String())
}

func TestProperty_DamageTotalIsLinear(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 5).Draw(t, "count")
		sides := rapid.IntRange(2, 20).Draw(t, "sides")
		mod := rapid.IntRange(0, 20).Draw(t, "mod")
		rolled := rapid.IntRange(0, 100).Draw(t, "rolled")
		situational := rapid.IntRange(-10, 10).Draw(t, "situational")

		f := dice.Formula{Count: count, Sides: sides, Modifier: mod}
		d, warn := dice.ComputeDamage(f.String(), rolled, situational)
		if warn != nil {
			t.Fatalf("unexpected warning for %q", f.String())
		}
		if d.Total() != rolled+mod+situational {
			t.Fatalf("total %d != %d", d.Total(), rolled+mod+situational)
		}
	})
}
