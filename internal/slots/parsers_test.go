package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectID(t *testing.T) {
	id, ok := ParseObjectID("cliente 65A1F0C2B3D4E5F60718293A por favor")
	require.True(t, ok)
	assert.Equal(t, "65a1f0c2b3d4e5f60718293a", id)

	_, ok = ParseObjectID("65a1f0c2b3d4")
	assert.False(t, ok)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1500", 1500, true},
		{"son 1500,50 pesos", 1500.5, true},
		{"$ 99.9", 99.9, true},
		{"0", 0, true},
		{"-200", -200, true},
		{"mil quinientos", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, "input %q", tc.in)
	}
}

func TestParseItemLine(t *testing.T) {
	item, ok := ParseItemLine("Cable 2x1.5mm 3500")
	require.True(t, ok)
	assert.Equal(t, "Cable 2x1.5mm", item.Description)
	assert.InDelta(t, 3500, item.Amount, 1e-9)

	item, ok = ParseItemLine("Caño de cobre: 1200,75")
	require.True(t, ok)
	assert.Equal(t, "Caño de cobre", item.Description)
	assert.InDelta(t, 1200.75, item.Amount, 1e-9)

	item, ok = ParseItemLine("500 viáticos")
	require.True(t, ok)
	assert.Equal(t, "viáticos", item.Description)

	_, ok = ParseItemLine("4500")
	assert.False(t, ok, "amount without description")

	_, ok = ParseItemLine("dos unidades de quinientos")
	assert.False(t, ok)
}

func TestParseSelection(t *testing.T) {
	n, ok := ParseSelection(" 2 ", 3)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	for _, in := range []string{"0", "4", "dos", "1.5", ""} {
		_, ok := ParseSelection(in, 3)
		assert.False(t, ok, "input %q", in)
	}
}
