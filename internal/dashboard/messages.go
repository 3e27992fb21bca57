package dashboard

import (
	"errors"
	"strings"

	"github.com/caza2026/panel/internal/api"
	"github.com/caza2026/panel/internal/listview"
)

// Message maps an operation error to the text shown to the operator.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var vErr *listview.ValidationError
	switch {
	case errors.Is(err, listview.ErrActionInFlight):
		return "La acción ya está en curso para este registro."
	case errors.As(err, &vErr):
		if len(vErr.Fields) == 0 {
			return "Faltan datos para completar la acción."
		}
		return "Faltan datos para completar la acción: " + fieldNames(vErr.Fields) + "."
	case errors.Is(err, listview.ErrPageOutOfRange):
		return "La página solicitada no existe."
	case errors.Is(err, listview.ErrRowNotFound):
		return "El registro ya no está en la página actual. Actualizá la lista."
	case errors.Is(err, listview.ErrUnknownAction):
		return "Acción no disponible para este listado."
	case errors.Is(err, api.ErrLookupCriteria):
		return "Ingresá al menos un criterio de búsqueda."
	case api.IsDecode(err):
		return "El servidor devolvió una respuesta inválida."
	case api.IsNetwork(err):
		if detail := api.Detail(err); detail != "" {
			return "Error del servidor: " + detail
		}
		return "No se pudo conectar con el servidor."
	default:
		return "Ocurrió un error inesperado."
	}
}

var fieldLabels = map[string]string{
	"Email":       "email",
	"Identifier":  "identificador",
	"DisplayName": "nombre",
	"Amount":      "monto",
}

func fieldNames(fields []string) string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if label, ok := fieldLabels[f]; ok {
			out = append(out, label)
			continue
		}
		out = append(out, strings.ToLower(f))
	}
	return strings.Join(out, ", ")
}
