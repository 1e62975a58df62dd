package convo

import (
	"fmt"
	"strings"

	"quote-orchestrator/internal/quote"
	"quote-orchestrator/internal/session"
	"quote-orchestrator/internal/slots"
)

const (
	msgOpening            = "¡Hola! Vamos a armar una cotización. ¿El cliente ya existe en el sistema o lo cargamos manualmente? Respondé \"existente\" o \"manual\"."
	msgClientTypeRetry    = "No me quedó claro. ¿Es un cliente existente o uno nuevo para cargar manualmente? Respondé \"existente\" o \"manual\"."
	msgAskClientName      = "Perfecto. ¿Cuál es el nombre del cliente? También podés pegar su ID."
	msgClientNameBlank    = "Necesito el nombre del cliente para buscarlo."
	msgClientUnavailable  = "No pude verificar el cliente en este momento. Probá de nuevo en un rato o escribí \"manual\" para cargarlo a mano."
	msgClientIDNotFound   = "No encontré ningún cliente con ese ID. Probá con el nombre o escribí \"manual\" para cargarlo a mano."
	msgAskManualName      = "Dale, lo cargamos a mano. ¿Cuál es el nombre del cliente?"
	msgManualNameBlank    = "Necesito el nombre del cliente para continuar."
	msgAskManualAddress   = "¿Cuál es la dirección del trabajo?"
	msgManualAddressBlank = "Necesito la dirección para continuar."
	msgAskLabor           = "¿Cuánto es la mano de obra? Indicá solo el monto, por ejemplo 15000."
	msgLaborRetry         = "No pude leer el monto de la mano de obra. Escribí un número mayor o igual a cero, por ejemplo 15000."
	msgConfirmZeroLabor   = "La mano de obra quedó en $0. ¿Es correcto? Respondé sí o no."
	msgConfirmZeroRetry   = "¿Confirmás que la mano de obra es $0? Respondé sí o no."
	msgConfirmPrompt      = "¿Confirmás la cotización? Escribí \"confirmar\" para registrarla."
	msgCommitFailed       = "No pude registrar la cotización en el sistema. Tus datos siguen guardados."
	msgGenericError       = "Ocurrió un error inesperado y tuve que cerrar esta conversación. Empezá una nueva para armar la cotización."
	msgAlreadyDone        = "Esta cotización ya fue registrada. Iniciá una nueva conversación para cargar otra."
)

var categoryNames = map[session.Category]string{
	session.CategoryMaterials: "materiales",
	session.CategoryEquipment: "equipos",
	session.CategoryExtras:    "extras",
}

var categoryExamples = map[session.Category]string{
	session.CategoryMaterials: "Caño de cobre 3/8 12000",
	session.CategoryEquipment: "Alquiler de andamio 8000",
	session.CategoryExtras:    "Viáticos 5000",
}

func msgClientNotFound(name string) string {
	return fmt.Sprintf("No encontré clientes que coincidan con \"%s\". Probá con otro nombre o escribí \"manual\" para cargarlo a mano.", name)
}

func msgDisambiguation(matches []session.ClientMatch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Encontré %d clientes:\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, m.DisplayName)
	}
	sb.WriteString("Respondé con el número del cliente o \"otro\" para buscar de nuevo.")
	return sb.String()
}

func msgDisambiguationRetry(matches []session.ClientMatch) string {
	return fmt.Sprintf("Elegí un número entre 1 y %d.\n", len(matches)) + msgDisambiguation(matches)
}

func msgAskBranch(client string, branches []session.Branch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cliente: %s. ¿En qué sucursal es el trabajo?\n", client)
	writeBranches(&sb, branches)
	sb.WriteString("Respondé con el número o el nombre de la sucursal.")
	return sb.String()
}

func msgBranchRetry(branches []session.Branch) string {
	var sb strings.Builder
	sb.WriteString("No reconocí esa sucursal. Las opciones son:\n")
	writeBranches(&sb, branches)
	sb.WriteString("Respondé con el número o el nombre de la sucursal.")
	return sb.String()
}

func msgNoBranches(client string) string {
	return fmt.Sprintf("No encontré sucursales para %s. Probá de nuevo en un rato o escribí \"manual\" para cargar el cliente a mano.", client)
}

func writeBranches(sb *strings.Builder, branches []session.Branch) {
	for i, b := range branches {
		fmt.Fprintf(sb, "%d. %s\n", i+1, b.Name)
	}
}

func msgAskJobType(options []string) string {
	return "¿Qué tipo de trabajo es? Opciones: " + strings.Join(options, ", ") + "."
}

func msgJobTypeRetry(options []string) string {
	return "No reconocí ese tipo de trabajo. Elegí una de estas opciones: " + strings.Join(options, ", ") + "."
}

func msgCategoryConfirm(cat session.Category) string {
	return fmt.Sprintf("¿Querés agregar %s? Respondé sí o no.", categoryNames[cat])
}

func msgCategoryConfirmRetry(cat session.Category) string {
	return fmt.Sprintf("No te entendí. ¿Agregamos %s? Respondé sí o no.", categoryNames[cat])
}

func msgAskItem(cat session.Category) string {
	return fmt.Sprintf("Decime el primer ítem de %s con su monto, por ejemplo \"%s\".", categoryNames[cat], categoryExamples[cat])
}

func msgItemAdded(cat session.Category, item slots.Item) string {
	return fmt.Sprintf("Agregado: %s por %s. Decime otro ítem de %s o escribí \"listo\" para terminar.", item.Description, quote.FormatMoney(item.Amount), categoryNames[cat])
}

func msgItemRetry(cat session.Category) string {
	return fmt.Sprintf("No pude leer el ítem. Escribí la descripción seguida del monto, por ejemplo \"%s\".", categoryExamples[cat])
}

func msgNeedOneItem(cat session.Category) string {
	return fmt.Sprintf("Todavía no agregaste ningún ítem de %s. Decime al menos uno, por ejemplo \"%s\".", categoryNames[cat], categoryExamples[cat])
}

func msgSuccess(quoteID string, totals quote.Totals) string {
	if quoteID == "" {
		return fmt.Sprintf("¡Listo! La cotización quedó registrada por %s con IVA.", quote.FormatMoney(totals.WithTax))
	}
	return fmt.Sprintf("¡Listo! La cotización %s quedó registrada por %s con IVA.", quoteID, quote.FormatMoney(totals.WithTax))
}

// summaryText renders the deterministic summary of the collected quote.
func summaryText(c *session.Context) string {
	var sb strings.Builder
	sb.WriteString("Resumen de la cotización:\n")
	fmt.Fprintf(&sb, "Cliente: %s\n", quote.ClientLabel(c))
	if c.BranchName != "" {
		fmt.Fprintf(&sb, "Sucursal: %s\n", c.BranchName)
	}
	if c.ClientMode == session.ClientModeManual && c.Manual != nil && c.Manual.Address != "" {
		fmt.Fprintf(&sb, "Dirección: %s\n", c.Manual.Address)
	}
	fmt.Fprintf(&sb, "Tipo de trabajo: %s\n", c.JobType)
	fmt.Fprintf(&sb, "Mano de obra: %s\n", quote.FormatMoney(c.Labor()))
	for _, cat := range session.Categories {
		items := c.Items(cat)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s:\n", strings.ToUpper(categoryNames[cat][:1])+categoryNames[cat][1:])
		for _, it := range items {
			fmt.Fprintf(&sb, "- %s: %s\n", it.Description, quote.FormatMoney(it.Amount))
		}
	}
	fmt.Fprintf(&sb, "Total sin IVA: %s\n", quote.FormatMoney(c.TotalCost))
	fmt.Fprintf(&sb, "Total con IVA (21%%): %s", quote.FormatMoney(c.TotalWithTax))
	return sb.String()
}
