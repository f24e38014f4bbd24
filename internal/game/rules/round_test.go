package rules_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/htbah/campaign-manager/internal/game/rules"
)

func TestRoundCommercial_Boundaries(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.5, 1},
		{1.5, 2},
		{2.5, 3},
		{-0.5, -1},
		{-1.5, -2},
		{-2.5, -3},
		{2.45, 2},
		{2.449, 2},
		{2.449999, 2},
		{2.4999, 3},
		{0.4999999, 1},
		{7.0, 7},
		{6.96, 7},
		{3.04, 3},
		{-0.4, 0},
		{10.0 / 3.0, 3},
		{65.0 / 10.0, 7},
		{45.0 / 10.0, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rules.RoundCommercial(tc.in), "RoundCommercial(%v)", tc.in)
	}
}

func TestRoundCommercial_IdempotentOnIntegers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(-1_000_000, 1_000_000).Draw(t, "n")
		if got := rules.RoundCommercial(float64(n)); got != n {
			t.Fatalf("RoundCommercial(%d) = %d", n, got)
		}
	})
}

func TestRoundCommercial_HalvesAwayFromZero(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 100_000).Draw(t, "n")
		half := float64(n) + 0.5
		if got := rules.RoundCommercial(half); got != n+1 {
			t.Fatalf("RoundCommercial(%v) = %d, want %d", half, got, n+1)
		}
		if got := rules.RoundCommercial(-half); got != -(n + 1) {
			t.Fatalf("RoundCommercial(%v) = %d, want %d", -half, got, -(n + 1))
		}
	})
}

func TestRoundCommercial_WithinHalfOfInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Float64Range(-10_000, 10_000).Draw(t, "x")
		got := rules.RoundCommercial(x)
		if math.Abs(float64(got)-x) > 0.5005 {
			t.Fatalf("RoundCommercial(%v) = %d is too far from input", x, got)
		}
	})
}

func TestSoftInt(t *testing.T) {
	assert.Equal(t, 5, rules.SoftInt(5))
	assert.Equal(t, 5, rules.SoftInt(int64(5)))
	assert.Equal(t, 5, rules.SoftInt(5.9))
	assert.Equal(t, -3, rules.SoftInt("-3"))
	assert.Equal(t, 12, rules.SoftInt(" 12 "))
	assert.Equal(t, 2, rules.SoftInt("2.7"))
	assert.Equal(t, 0, rules.SoftInt("abc"))
	assert.Equal(t, 0, rules.SoftInt(nil))
	assert.Equal(t, 0, rules.SoftInt(true))
	assert.Equal(t, 0, rules.SoftInt([]int{1}))
	assert.Equal(t, 42, rules.SoftInt(json.Number("42")))
	assert.Equal(t, 0, rules.SoftInt(math.NaN()))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, rules.Clamp(-5, 0, 100))
	assert.Equal(t, 100, rules.Clamp(130, 0, 100))
	assert.Equal(t, 42, rules.Clamp(42, 0, 100))
}

func TestValidationError(t *testing.T) {
	var p rules.Problems
	require.NoError(t, p.Err())

	p.Addf("skill %q out of range", "Schwimmen")
	p.Addf("total %d exceeds %d", 410, rules.SkillPointPool)
	err := p.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, rules.ErrValidation))

	var ve *rules.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Problems, 2)
	assert.Contains(t, err.Error(), "Schwimmen")
	assert.Contains(t, err.Error(), "410")
}

func TestDataIntegrityWarning(t *testing.T) {
	w := rules.Warnf("cond-1", "unknown condition id")
	assert.Equal(t, "data integrity: cond-1: unknown condition id", w.Error())
}
