package nlu

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"quote-orchestrator/internal/slots"
)

type scriptedOracle struct {
	answers []string
	err     error
	prompts []string
}

func (s *scriptedOracle) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.answers) == 0 {
		return "", nil
	}
	out := s.answers[0]
	s.answers = s.answers[1:]
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func adapterWith(answers ...string) (*Adapter, *scriptedOracle) {
	o := &scriptedOracle{answers: answers}
	return NewAdapter(o, discardLogger()), o
}

func TestClassifyClientType(t *testing.T) {
	cases := []struct {
		answer string
		want   slots.ClientType
	}{
		{"EXISTENTE", slots.ClientExisting},
		{"  manual.\n", slots.ClientManual},
		{"\"Existente\"", slots.ClientExisting},
		{"DESCONOCIDO", slots.ClientUnknown},
		{"Creo que el cliente es existente", slots.ClientUnknown},
		{"", slots.ClientUnknown},
	}
	for _, tc := range cases {
		a, o := adapterWith(tc.answer)
		assert.Equal(t, tc.want, a.ClassifyClientType(context.Background(), "ya lo tenemos"), tc.answer)
		assert.Contains(t, o.prompts[0], "ya lo tenemos")
	}
}

func TestClassifyYesNo(t *testing.T) {
	cases := []struct {
		answer string
		want   YesNo
	}{
		{"AFIRMATIVO", Yes},
		{"negativo", No},
		{"Sí", Yes},
		{"quizás", Unresolved},
	}
	for _, tc := range cases {
		a, _ := adapterWith(tc.answer)
		assert.Equal(t, tc.want, a.ClassifyYesNo(context.Background(), "dale"), tc.answer)
	}
}

func TestNormalizeOptionAcceptsOnlyCatalogEntries(t *testing.T) {
	catalog := slots.NewCatalog(slots.DefaultJobTypes...)

	a, o := adapterWith("reparación")
	got, ok := a.NormalizeOption(context.Background(), "arreglar el aire", catalog)
	assert.True(t, ok)
	assert.Equal(t, "Reparación", got)
	assert.Contains(t, o.prompts[0], "Mantenimiento preventivo")

	a, _ = adapterWith("Reparacion de aires")
	_, ok = a.NormalizeOption(context.Background(), "arreglar el aire", catalog)
	assert.False(t, ok)

	a, _ = adapterWith("Pintura")
	_, ok = a.NormalizeOption(context.Background(), "pintar", catalog)
	assert.False(t, ok)
}

func TestExtractItem(t *testing.T) {
	cases := []struct {
		name   string
		answer string
		want   slots.Item
		ok     bool
	}{
		{"plain", `{"description":"Caño de cobre","amount":1000}`, slots.Item{Description: "Caño de cobre", Amount: 1000}, true},
		{"fenced", "```json\n{\"description\": \"Gas R410\", \"amount\": 2500.5}\n```", slots.Item{Description: "Gas R410", Amount: 2500.5}, true},
		{"chatter", `Claro! {"description":"Tornillos","amount":"350,5"} listo`, slots.Item{Description: "Tornillos", Amount: 350.5}, true},
		{"missing amount", `{"description":"Tornillos","amount":null}`, slots.Item{}, false},
		{"negative", `{"description":"Tornillos","amount":-3}`, slots.Item{}, false},
		{"no description", `{"description":"","amount":10}`, slots.Item{}, false},
		{"not json", `no entiendo`, slots.Item{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, _ := adapterWith(tc.answer)
			got, ok := a.ExtractItem(context.Background(), "lo que sea")
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want.Description, got.Description)
				assert.InDelta(t, tc.want.Amount, got.Amount, 1e-9)
			}
		})
	}
}

func TestExtractClientName(t *testing.T) {
	a, _ := adapterWith("Frigorífico del Sur")
	name, ok := a.ExtractClientName(context.Background(), "buscame frigorifico del sur porfa")
	assert.True(t, ok)
	assert.Equal(t, "Frigorífico del Sur", name)

	a, _ = adapterWith("DESCONOCIDO")
	_, ok = a.ExtractClientName(context.Background(), "hola")
	assert.False(t, ok)
}

func TestRenderFallsBackVerbatim(t *testing.T) {
	fallback := "¿Qué tipo de trabajo es?"

	failing := NewAdapter(&scriptedOracle{err: errors.New("boom")}, discardLogger())
	assert.Equal(t, fallback, failing.Render(context.Background(), "Preguntá el tipo de trabajo.", fallback))

	empty, _ := adapterWith("   ")
	assert.Equal(t, fallback, empty.Render(context.Background(), "x", fallback))

	disabled := NewAdapter(nil, discardLogger())
	assert.False(t, disabled.Enabled())
	assert.Equal(t, fallback, disabled.Render(context.Background(), "x", fallback))

	ok, _ := adapterWith("\"Contame, ¿qué trabajo vas a hacer?\"")
	assert.Equal(t, "Contame, ¿qué trabajo vas a hacer?", ok.Render(context.Background(), "x", fallback))
}

func TestDisabledAdapterNeverResolves(t *testing.T) {
	a := NewAdapter(nil, discardLogger())
	ctx := context.Background()
	assert.Equal(t, slots.ClientUnknown, a.ClassifyClientType(ctx, "existente"))
	assert.Equal(t, Unresolved, a.ClassifyYesNo(ctx, "si"))
	_, ok := a.ExtractItem(ctx, "cable 100")
	assert.False(t, ok)
	_, ok = a.NormalizeOption(ctx, "service", slots.NewCatalog(slots.DefaultJobTypes...))
	assert.False(t, ok)
}
