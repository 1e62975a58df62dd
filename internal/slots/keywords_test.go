package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYesNoClassifiers(t *testing.T) {
	yes := []string{"si", "Sí", "SI!", "dale", "ok", "yes", "de una", "si, claro", "dale, gracias", "De una!"}
	no := []string{"no", "NO.", "nop", "no gracias", "para nada", "nada"}
	neither := []string{
		"", "tal vez", "si pero no", "no se, si", "quizas mas tarde si hace falta algo",
		"y el iva?", "y cuánto sale?", "ok espera", "bueno pero espera", "y", "s", "n", "no, espera",
	}

	for _, in := range yes {
		assert.True(t, IsAffirmative(in), "expected yes for %q", in)
		assert.False(t, IsNegative(in), "unexpected no for %q", in)
	}
	for _, in := range no {
		assert.True(t, IsNegative(in), "expected no for %q", in)
		assert.False(t, IsAffirmative(in), "unexpected yes for %q", in)
	}
	for _, in := range neither {
		assert.False(t, IsAffirmative(in), "unexpected yes for %q", in)
		assert.False(t, IsNegative(in), "unexpected no for %q", in)
	}
}

func TestIsConfirmation(t *testing.T) {
	for _, in := range []string{"CONFIRMAR", "confirmo", "I confirm", "confirm", "lo confirmo"} {
		assert.True(t, IsConfirmation(in), "input %q", in)
	}
	for _, in := range []string{"", "no confirmo", "quiero confirmar mañana temprano", "si", "confirmo pero espera", "y confirmo?"} {
		assert.False(t, IsConfirmation(in), "input %q", in)
	}
}

func TestIsFinish(t *testing.T) {
	for _, in := range []string{"listo", "Finalizar", "done", "nada más", "eso es todo", "resumen", "listo, gracias", "That's all"} {
		assert.True(t, IsFinish(in), "input %q", in)
	}
	for _, in := range []string{"", "listo el cable 300", "cable 300", "quiero agregar otro", "cerrar puerta del tablero", "listo el otro", "fin de curso"} {
		assert.False(t, IsFinish(in), "input %q", in)
	}
}

func TestClassifyClientType(t *testing.T) {
	assert.Equal(t, ClientExisting, ClassifyClientType("existente"))
	assert.Equal(t, ClientExisting, ClassifyClientType("es uno registrado"))
	assert.Equal(t, ClientExisting, ClassifyClientType("65a1f0c2b3d4e5f60718293a"))
	assert.Equal(t, ClientManual, ClassifyClientType("es nuevo"))
	assert.Equal(t, ClientManual, ClassifyClientType("walk-in"))
	assert.Equal(t, ClientUnknown, ClassifyClientType("no sé"))
	assert.Equal(t, ClientUnknown, ClassifyClientType("nuevo o existente"))
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(DefaultJobTypes...)

	got, ok := c.Resolve("  instalacion ")
	assert.True(t, ok)
	assert.Equal(t, "Instalación", got)

	_, ok = c.Resolve("instalar algo")
	assert.False(t, ok)

	got, ok = c.Canonical("MANTENIMIENTO PREVENTIVO")
	assert.True(t, ok)
	assert.Equal(t, "Mantenimiento preventivo", got)

	_, ok = c.Canonical("Mantenimiento")
	assert.False(t, ok)

	assert.Len(t, c.Options(), len(DefaultJobTypes))
}
