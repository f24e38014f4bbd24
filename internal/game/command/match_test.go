package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var skillNames = []string{"Nahkampf", "Fernkampf", "Ausweichen", "Erste Hilfe", "Handeln", "Heimlichkeit"}

func TestMatch_Exact(t *testing.T) {
	v, sugg, ok := Match("nahkampf", skillNames)
	assert.True(t, ok)
	assert.Equal(t, "Nahkampf", v)
	assert.Nil(t, sugg)
}

func TestMatch_UniquePrefix(t *testing.T) {
	v, _, ok := Match("Aus", skillNames)
	assert.True(t, ok)
	assert.Equal(t, "Ausweichen", v)
}

func TestMatch_AmbiguousPrefix(t *testing.T) {
	_, sugg, ok := Match("h", skillNames)
	assert.False(t, ok)
	assert.Equal(t, []string{"Handeln", "Heimlichkeit"}, sugg)
}

func TestMatch_FuzzySuggestsOnly(t *testing.T) {
	_, sugg, ok := Match("Nakhampf", skillNames)
	assert.False(t, ok)
	assert.Equal(t, []string{"Nahkampf"}, sugg)
}

func TestMatch_EmptyInput(t *testing.T) {
	_, sugg, ok := Match("  ", skillNames)
	assert.False(t, ok)
	assert.Nil(t, sugg)
}

func TestSuggest_ShortInputIgnored(t *testing.T) {
	assert.Nil(t, Suggest("xy", []string{"xz"}))
}

func TestSuggest_ClosestFirstAndCapped(t *testing.T) {
	cands := []string{"abcd", "abce", "abcf", "abcg", "abch", "abcx"}
	got := Suggest("abcd", cands)
	assert.Len(t, got, maxSuggestions)
	assert.Equal(t, "abcd", got[0])
}

func TestLevenshteinLimit(t *testing.T) {
	assert.Equal(t, 1, levenshteinLimit(4))
	assert.Equal(t, 2, levenshteinLimit(5))
	assert.Equal(t, 2, levenshteinLimit(8))
	assert.Equal(t, 3, levenshteinLimit(9))
}

func TestPropertyMatchOKReturnsCandidate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cands := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z]{1,8}`), 1, 8).Draw(t, "cands")
		in := rapid.StringMatching(`[A-Za-z]{0,6}`).Draw(t, "input")
		v, _, ok := Match(in, cands)
		if !ok {
			return
		}
		assert.Contains(t, cands, v)
	})
}
