package quote

import (
	"strings"

	"quote-orchestrator/internal/session"
	"quote-orchestrator/internal/slots"
)

// StatusPending is the status a quote holds until a manager approves it.
const StatusPending = "pending"

const estadoPendiente = "pendiente"

// BuildPayload assembles the create-quote body. Totals are recomputed here so
// the payload never disagrees with the collected items.
func BuildPayload(c *session.Context) map[string]any {
	totals := ComputeTotals(c)
	payload := map[string]any{
		"nombreTrabajo": jobTitle(c),
		"tipoDeTrabajo": c.JobType,
		"manoDeObra":    c.Labor(),
		"materiales":    itemsPayload(c.Materials),
		"equipos":       itemsPayload(c.Equipment),
		"extras":        itemsPayload(c.Extras),
		"totalCost":     totals.Cost,
		"totalIva":      totals.WithTax,
		"estado":        estadoPendiente,
		"aprobado":      false,
	}

	switch c.ClientMode {
	case session.ClientModeExisting:
		payload["clienteId"] = c.ClientID
		if c.BranchID != "" {
			payload["sucursalId"] = c.BranchID
			payload["sucursalNombre"] = c.BranchName
		}
	case session.ClientModeManual:
		manual := map[string]any{}
		if c.Manual != nil {
			manual["nombre"] = c.Manual.Name
			manual["direccion"] = c.Manual.Address
			if c.Manual.Address != "" {
				payload["ubicacion"] = map[string]any{"direccion": c.Manual.Address}
			}
		}
		payload["clienteManual"] = manual
	}
	return payload
}

// ClientLabel is the client as shown in summaries.
func ClientLabel(c *session.Context) string {
	if c.ClientMode == session.ClientModeManual && c.Manual != nil {
		return c.Manual.Name
	}
	if c.ClientName != "" {
		return c.ClientName
	}
	return c.ClientID
}

func jobTitle(c *session.Context) string {
	parts := make([]string, 0, 2)
	if c.JobType != "" {
		parts = append(parts, c.JobType)
	}
	if label := ClientLabel(c); label != "" {
		parts = append(parts, label)
	}
	return strings.Join(parts, " - ")
}

func itemsPayload(items []slots.Item) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"descripcion": it.Description,
			"monto":       it.Amount,
		})
	}
	return out
}
