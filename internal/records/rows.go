// Package records holds the typed rows of each backend collection and binds them to
// list view controllers and row actions.
package records

import (
	"net/url"
	"strings"

	"github.com/caza2026/panel/internal/listview"
)

// Resources served by the backend.
const (
	Inscripciones         listview.Resource = "inscripciones"
	Permisos              listview.Resource = "permisos"
	Reses                 listview.Resource = "reses"
	Pagos                 listview.Resource = "pagos"
	Logs                  listview.Resource = "logs"
	CobrosEnviados        listview.Resource = "cobros-enviados"
	PermisoCobrosEnviados listview.Resource = "permiso-cobros-enviados"
)

// Page sizes are fixed per resource.
const (
	SmallPage = 10
	LargePage = 15
)

// PageSize returns the fixed page size of r.
func PageSize(r listview.Resource) int {
	switch r {
	case Inscripciones, Permisos:
		return SmallPage
	default:
		return LargePage
	}
}

// All lists every resource in navigation order.
func All() []listview.Resource {
	return []listview.Resource{Inscripciones, Permisos, Reses, Pagos, Logs, CobrosEnviados, PermisoCobrosEnviados}
}

// Known reports whether r is a served resource.
func Known(r listview.Resource) bool {
	for _, v := range All() {
		if v == r {
			return true
		}
	}
	return false
}

// Payment status labels used by the backend.
const (
	EstadoPagado    = "Pagado"
	EstadoPendiente = "Pendiente"
)

// Inscripcion is a hunting ground registration.
type Inscripcion struct {
	NumeroInscripcion     Text    `json:"numero_inscripcion"`
	NombreEstablecimiento string  `json:"nombre_establecimiento"`
	RazonSocial           string  `json:"razon_social"`
	CUIT                  Text    `json:"cuit"`
	Email                 string  `json:"email"`
	Celular               Text    `json:"celular"`
	Localidad             string  `json:"localidad"`
	FechaCreacion         Time    `json:"fecha_creacion"`
	PDFLink               *string `json:"pdf_link"`
	EstadoPago            string  `json:"Estado de Pago"`
	SentStatuses          SentSet `json:"-"`
}

// Key returns the registration number.
func (i Inscripcion) Key() string { return i.NumeroInscripcion.String() }

// Paid reports whether the backend marked the registration as paid.
func (i Inscripcion) Paid() bool { return strings.EqualFold(i.EstadoPago, EstadoPagado) }

// HasPDF reports whether a document link is available.
func (i Inscripcion) HasPDF() bool { return i.PDFLink != nil && strings.TrimSpace(*i.PDFLink) != "" }

// ComposeURL is the mail client fallback for the registration holder.
func (i Inscripcion) ComposeURL() string {
	return GmailComposeURL(i.Email, "Inscripción Caza 2026 - "+i.NombreEstablecimiento)
}

func (i Inscripcion) searchFields() []string {
	return []string{i.NombreEstablecimiento, i.RazonSocial, i.CUIT.String(), i.NumeroInscripcion.String(), i.Email}
}

// Permiso is a hunting permit issued to a person.
type Permiso struct {
	ID           Text    `json:"ID"`
	Nombre       string  `json:"nombre_apellido"`
	DNI          Text    `json:"dni"`
	Email        string  `json:"email"`
	Celular      Text    `json:"celular"`
	Categoria    string  `json:"categoria"`
	Especie      string  `json:"especie"`
	Fecha        Time    `json:"fecha"`
	EstadoPago   string  `json:"estado_pago"`
	SentStatuses SentSet `json:"sent_statuses"`
}

// Key returns the permit ID.
func (p Permiso) Key() string { return p.ID.String() }

// Paid reports whether the permit is paid.
func (p Permiso) Paid() bool { return strings.EqualFold(p.EstadoPago, EstadoPagado) }

// ComposeURL is the mail client fallback for the permit holder.
func (p Permiso) ComposeURL() string {
	return GmailComposeURL(p.Email, "Permiso de Caza 2026 - "+p.Nombre)
}

func (p Permiso) searchFields() []string {
	return []string{p.Nombre, p.DNI.String(), p.Categoria, p.ID.String()}
}

// Res is a livestock transport record.
type Res struct {
	ID              Text           `json:"id"`
	Establecimiento string         `json:"establecimiento"`
	Titular         string         `json:"titular"`
	DNI             Text           `json:"dni"`
	Especie         string         `json:"especie"`
	Cantidad        Text           `json:"cantidad"`
	Guia            Text           `json:"guia"`
	Fecha           Time           `json:"fecha"`
	Monto           Text           `json:"monto"`
	IsPaid          bool           `json:"is_paid"`
	History         []HistoryEntry `json:"history"`
}

// Key returns the record id.
func (r Res) Key() string { return r.ID.String() }

func (r Res) searchFields() []string {
	return []string{r.Establecimiento, r.Titular, r.DNI.String(), r.Especie, r.Guia.String()}
}

// Pago is a payment notified by the payment gateway.
type Pago struct {
	PaymentID     Text    `json:"payment_id"`
	InscriptionID Text    `json:"inscription_id"`
	Status        string  `json:"status"`
	StatusDetail  string  `json:"status_detail"`
	Amount        float64 `json:"amount"`
	Email         string  `json:"email"`
	DateCreated   Time    `json:"date_created"`
}

// Key returns the gateway payment id.
func (p Pago) Key() string { return p.PaymentID.String() }

// Approved reports whether the gateway approved the payment.
func (p Pago) Approved() bool { return strings.EqualFold(p.Status, "approved") }

func (p Pago) searchFields() []string {
	return []string{p.InscriptionID.String(), p.Email, p.Status, p.PaymentID.String()}
}

// LogEntry is one line of the operator activity log.
type LogEntry struct {
	ID         Text   `json:"id"`
	Timestamp  Time   `json:"timestamp"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	Identifier Text   `json:"identifier"`
	Details    string `json:"details"`
}

// Key returns the log id.
func (l LogEntry) Key() string { return l.ID.String() }

func (l LogEntry) searchFields() []string {
	return []string{l.Username, l.Action, l.Identifier.String(), l.Details}
}

// CobroEnviado is a payment link already sent to a registration or permit holder.
type CobroEnviado struct {
	ID         Text   `json:"id"`
	Identifier Text   `json:"identifier"`
	Nombre     string `json:"nombre"`
	Email      string `json:"email"`
	Monto      Text   `json:"monto"`
	SentAt     Time   `json:"sent_at"`
	Username   string `json:"username"`
}

// Key returns the log id.
func (c CobroEnviado) Key() string { return c.ID.String() }

func (c CobroEnviado) searchFields() []string {
	return []string{c.Identifier.String(), c.Nombre, c.Email}
}

// GmailComposeURL builds a compose link for the operator's web mail client.
func GmailComposeURL(to, subject string) string {
	q := url.Values{}
	q.Set("view", "cm")
	q.Set("fs", "1")
	q.Set("to", strings.TrimSpace(to))
	if subject != "" {
		q.Set("su", subject)
	}
	return "https://mail.google.com/mail/?" + q.Encode()
}
