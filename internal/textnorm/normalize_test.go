package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"  Sí  ", "si"},
		{"INSTALACIÓN Eléctrica", "instalacion electrica"},
		{"Ñandú", "nandu"},
		{"already plain", "already plain"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "input %q", tc.in)
	}
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"si", "dale"}, Fields("¡Sí, dale!"))
	assert.Empty(t, Fields(" ... "))
}
