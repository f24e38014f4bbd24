package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

func sword() *inventory.Item {
	return &inventory.Item{
		ID: "i-sword", Name: "Schwert", IsWeapon: true, DamageFormula: "1W10+2",
		WeaponCategory: "Nahkampf", Attributes: map[string]string{"Gewicht": "3kg"},
		LinkedConditions: []string{"c-brave"},
	}
}

func TestItem_Validate(t *testing.T) {
	require.NoError(t, sword().Validate())

	bad := &inventory.Item{DamageFormula: "1W6", LinkedConditions: []string{"a", "a"}}
	err := bad.Validate()
	require.Error(t, err)
	var ve *rules.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 4)
}

func TestItem_CloneDoesNotAlias(t *testing.T) {
	orig := sword()
	cp := orig.Clone()
	cp.Attributes["Gewicht"] = "10kg"
	cp.LinkedConditions[0] = "other"
	assert.Equal(t, "3kg", orig.Attributes["Gewicht"])
	assert.Equal(t, "c-brave", orig.LinkedConditions[0])
}

func TestLoadItems_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	src := `
id: i-lamp
name: Laterne
description: Leuchtet.
attributes:
  Brenndauer: 4h
linked_conditions: [c-light]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lamp.yml"), []byte(src), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	items, err := inventory.LoadItems(dir)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Laterne", items[0].Name)
	assert.Equal(t, []string{"c-light"}, items[0].LinkedConditions)
	assert.Equal(t, []string{"Brenndauer"}, items[0].AttributeNames())
}

func TestLoadItems_InvalidItem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: Nameless\n"), 0644))
	_, err := inventory.LoadItems(dir)
	assert.Error(t, err)
}
