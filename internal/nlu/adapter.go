package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"quote-orchestrator/internal/slots"
	"quote-orchestrator/internal/textnorm"
)

// ErrUnresolved is returned by the parsers when a model answer does not have the expected shape.
var ErrUnresolved = errors.New("oracle answer unresolved")

// YesNo is the tri-state outcome of a yes/no classification.
type YesNo int

const (
	Unresolved YesNo = iota
	Yes
	No
)

const maxNameLength = 120

// Adapter turns model answers into typed values. Every method degrades to
// "unresolved" when the model is missing, failing or answers off-format.
type Adapter struct {
	oracle Oracle
	logger *slog.Logger
}

// NewAdapter wraps oracle. A nil oracle yields an adapter that never resolves anything.
func NewAdapter(oracle Oracle, logger *slog.Logger) *Adapter {
	return &Adapter{
		oracle: oracle,
		logger: logger.With("component", "nlu_adapter"),
	}
}

// Enabled reports whether a model is configured.
func (a *Adapter) Enabled() bool {
	return a != nil && a.oracle != nil
}

// ClassifyClientType asks whether the operator wants an existing or a manual client.
func (a *Adapter) ClassifyClientType(ctx context.Context, message string) slots.ClientType {
	var sb strings.Builder
	sb.WriteString("Analizá el siguiente mensaje del usuario y clasificá su intención respecto al tipo de cliente.\n\n")
	sb.WriteString("Categorías posibles:\n")
	sb.WriteString("- EXISTENTE: quiere usar un cliente que ya existe (ej: \"es uno que ya tenemos\", \"buscar cliente\", \"existente\").\n")
	sb.WriteString("- MANUAL: quiere cargar un cliente nuevo o manual (ej: \"es nuevo\", \"no lo tengo\", \"particular\", \"consumidor final\").\n")
	sb.WriteString("- DESCONOCIDO: no queda claro.\n\n")
	sb.WriteString("Mensaje: \"" + message + "\"\n\n")
	sb.WriteString("Respondé ÚNICAMENTE con una de las palabras: EXISTENTE, MANUAL o DESCONOCIDO.")

	raw, ok := a.ask(ctx, "classify_client_type", sb.String())
	if !ok {
		return slots.ClientUnknown
	}
	kind, err := parseClientType(raw)
	if err != nil {
		a.logger.Warn("client type answer discarded", "answer", snippet(raw))
		return slots.ClientUnknown
	}
	return kind
}

// ClassifyYesNo asks whether message is an affirmative or a negative answer.
func (a *Adapter) ClassifyYesNo(ctx context.Context, message string) YesNo {
	var sb strings.Builder
	sb.WriteString("Analizá si el siguiente mensaje es una respuesta AFIRMATIVA (sí, dale, ok, confirmo) o NEGATIVA (no, nop, nada).\n\n")
	sb.WriteString("Mensaje: \"" + message + "\"\n\n")
	sb.WriteString("Respondé ÚNICAMENTE: AFIRMATIVO, NEGATIVO o DESCONOCIDO.")

	raw, ok := a.ask(ctx, "classify_yes_no", sb.String())
	if !ok {
		return Unresolved
	}
	answer, err := parseYesNo(raw)
	if err != nil {
		a.logger.Warn("yes/no answer discarded", "answer", snippet(raw))
		return Unresolved
	}
	return answer
}

// NormalizeOption maps free text onto one catalog entry. Only an answer equal
// to a catalog option, ignoring case, is accepted.
func (a *Adapter) NormalizeOption(ctx context.Context, message string, catalog *slots.Catalog) (string, bool) {
	if catalog == nil {
		return "", false
	}
	var sb strings.Builder
	sb.WriteString("El usuario dijo: \"" + message + "\"\n\n")
	sb.WriteString("Opciones válidas: " + strings.Join(catalog.Options(), ", ") + "\n\n")
	sb.WriteString("¿A cuál opción se refiere? Respondé ÚNICAMENTE con el nombre EXACTO de la opción, o DESCONOCIDO si no coincide con ninguna.")

	raw, ok := a.ask(ctx, "normalize_option", sb.String())
	if !ok {
		return "", false
	}
	opt, found := catalog.Canonical(trimAnswer(raw))
	if !found {
		a.logger.Warn("catalog answer discarded", "answer", snippet(raw))
	}
	return opt, found
}

// ExtractItem asks for a {description, amount} object, evaluating implied arithmetic.
func (a *Adapter) ExtractItem(ctx context.Context, message string) (slots.Item, bool) {
	var sb strings.Builder
	sb.WriteString("Analizá el siguiente texto y extraé la descripción del ítem y el monto TOTAL en dinero.\n")
	sb.WriteString("Si hay cálculos implícitos (ej: \"2 unidades de 500\"), calculá el total (1000).\n")
	sb.WriteString("Si no hay monto, respondé {\"description\":\"\",\"amount\":null}.\n\n")
	sb.WriteString("Texto: \"" + message + "\"\n\n")
	sb.WriteString("Respondé ÚNICAMENTE con un JSON válido: {\"description\":\"texto\",\"amount\":123.45}")

	raw, ok := a.ask(ctx, "extract_item", sb.String())
	if !ok {
		return slots.Item{}, false
	}
	item, err := parseItem(raw)
	if err != nil {
		a.logger.Warn("item answer discarded", "error", err, "answer", snippet(raw))
		return slots.Item{}, false
	}
	return item, true
}

// ExtractClientName pulls the client name out of a conversational message.
func (a *Adapter) ExtractClientName(ctx context.Context, message string) (string, bool) {
	var sb strings.Builder
	sb.WriteString("Del siguiente mensaje extraé únicamente el nombre del cliente o empresa que el usuario quiere buscar.\n")
	sb.WriteString("Mensaje: \"" + message + "\"\n\n")
	sb.WriteString("Respondé ÚNICAMENTE con el nombre, sin comillas ni explicación, o DESCONOCIDO si no hay ninguno.")

	raw, ok := a.ask(ctx, "extract_client_name", sb.String())
	if !ok {
		return "", false
	}
	name, err := parseName(raw)
	if err != nil {
		return "", false
	}
	return name, true
}

// Render rewrites fallback following instruction. Any failure returns fallback verbatim.
func (a *Adapter) Render(ctx context.Context, instruction, fallback string) string {
	var sb strings.Builder
	sb.WriteString("Sos un asistente que ayuda a técnicos a armar presupuestos. ")
	sb.WriteString(strings.TrimSpace(instruction))
	sb.WriteString("\nReescribí el siguiente mensaje en español rioplatense, cordial y breve, sin inventar datos ni cambiar montos, opciones o números:\n\n")
	sb.WriteString(fallback)

	raw, ok := a.ask(ctx, "render", sb.String())
	if !ok {
		return fallback
	}
	out := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if out == "" {
		return fallback
	}
	return out
}

func (a *Adapter) ask(ctx context.Context, task, prompt string) (string, bool) {
	if !a.Enabled() {
		return "", false
	}
	raw, err := a.oracle.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("oracle call failed", "task", task, "error", err)
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		a.logger.Warn("oracle returned empty text", "task", task)
		return "", false
	}
	return raw, true
}

func parseClientType(raw string) (slots.ClientType, error) {
	switch textnorm.Normalize(trimAnswer(raw)) {
	case "existente", "existing":
		return slots.ClientExisting, nil
	case "manual", "nuevo", "new":
		return slots.ClientManual, nil
	case "desconocido", "unknown":
		return slots.ClientUnknown, nil
	}
	return slots.ClientUnknown, ErrUnresolved
}

func parseYesNo(raw string) (YesNo, error) {
	switch textnorm.Normalize(trimAnswer(raw)) {
	case "afirmativo", "si", "yes":
		return Yes, nil
	case "negativo", "no":
		return No, nil
	case "desconocido", "unknown":
		return Unresolved, nil
	}
	return Unresolved, ErrUnresolved
}

func parseName(raw string) (string, error) {
	name := trimAnswer(raw)
	if name == "" || strings.ContainsAny(name, "\n\r{}") || len(name) > maxNameLength {
		return "", ErrUnresolved
	}
	if n := textnorm.Normalize(name); n == "desconocido" || n == "unknown" {
		return "", ErrUnresolved
	}
	return name, nil
}

func parseItem(raw string) (slots.Item, error) {
	var data map[string]any
	dec := json.NewDecoder(strings.NewReader(extractJSON(raw)))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return slots.Item{}, fmt.Errorf("%w: decode item json: %v", ErrUnresolved, err)
	}
	desc := strings.Join(strings.Fields(firstString(data, "description", "descripcion")), " ")
	if desc == "" {
		return slots.Item{}, fmt.Errorf("%w: description missing", ErrUnresolved)
	}
	amount, ok := toFloat(firstPresent(data, "amount", "monto"))
	if !ok || amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return slots.Item{}, fmt.Errorf("%w: amount missing or negative", ErrUnresolved)
	}
	return slots.Item{Description: desc, Amount: amount}, nil
}

// trimAnswer strips the decoration models tend to add around a one-word answer.
func trimAnswer(raw string) string {
	s := strings.TrimSpace(raw)
	if line, _, found := strings.Cut(s, "\n"); found {
		s = line
	}
	return strings.TrimSpace(strings.Trim(s, " \t\"'`.*:;!"))
}

// extractJSON isolates the first JSON object in raw, dropping code fences and chatter.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
		if strings.HasPrefix(strings.ToLower(s), "json") {
			if idx := strings.IndexByte(s, '\n'); idx >= 0 {
				s = s[idx+1:]
			} else {
				s = ""
			}
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

func firstString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstPresent(data map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func snippet(s string) string {
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
