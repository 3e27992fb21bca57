package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/caza2026/panel/internal/api"
	"github.com/caza2026/panel/internal/listview"
)

// Payload keys understood by the bindings.
const (
	FieldOperator = "operator"
	FieldAmount   = "amount"
	FieldIsPaid   = "is_paid"
)

// Backend is the subset of the REST client the row actions call.
type Backend interface {
	SendEmail(ctx context.Context, req api.SendEmailRequest) (api.Ack, error)
	SendPaymentLink(ctx context.Context, req api.SendPaymentLinkRequest) (api.Ack, error)
	SendPermisoPaymentLink(ctx context.Context, req api.PermisoMessageRequest) (api.Ack, error)
	SendPermisoEmail(ctx context.Context, req api.PermisoMessageRequest) (api.Ack, error)
	SendCredential(ctx context.Context, req api.PermisoMessageRequest) (api.Ack, error)
	ViewCredential(ctx context.Context, permisoID string) (string, error)
	LogResAction(ctx context.Context, req api.ResActionRequest) (api.Ack, error)
}

// ViewLogger records that an operator opened a document. Delivery is best effort.
type ViewLogger interface {
	LogView(ctx context.Context, entry api.SentItemLog) error
}

// ViewLoggerFunc adapts a function to ViewLogger.
type ViewLoggerFunc func(ctx context.Context, entry api.SentItemLog) error

// LogView calls f.
func (f ViewLoggerFunc) LogView(ctx context.Context, entry api.SentItemLog) error {
	return f(ctx, entry)
}

// Audit action names written to the sent-items log.
const (
	LogActionViewPDF        = "view_pdf"
	LogActionViewCredential = "view_credential"
)

var credentialPolicy = newCredentialPolicy()

func newCredentialPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyles("color", "background-color", "font-size", "font-weight", "text-align", "border", "padding", "margin", "width").Globally()
	p.AllowDataURIImages()
	return p
}

// SanitizeCredential strips scripts and unsafe attributes from a credential fragment.
func SanitizeCredential(fragment string) string {
	return credentialPolicy.Sanitize(fragment)
}

func ackResult(ack api.Ack, fallback string) listview.ActionResult {
	msg := strings.TrimSpace(ack.Message)
	if msg == "" {
		msg = fallback
	}
	return listview.ActionResult{Message: msg}
}

func sentTag[R any](tag string, set func(*R) *SentSet) func(*R, listview.Payload, time.Time) {
	return func(r *R, _ listview.Payload, _ time.Time) {
		s := set(r)
		*s = s.With(tag)
	}
}

// InscripcionActions binds the registration row actions.
func InscripcionActions(b Backend, views ViewLogger) []listview.Action[Inscripcion] {
	sent := func(r *Inscripcion) *SentSet { return &r.SentStatuses }
	return []listview.Action[Inscripcion]{
		{
			Kind: listview.ActionSendEmail,
			Validate: func(r Inscripcion, _ listview.Payload) error {
				return listview.RequireContact(r.Email)
			},
			Call: func(ctx context.Context, r Inscripcion, _ listview.Payload) (listview.ActionResult, error) {
				ack, err := b.SendEmail(ctx, api.SendEmailRequest{
					InscriptionID:         r.Key(),
					Email:                 strings.TrimSpace(r.Email),
					NombreEstablecimiento: r.NombreEstablecimiento,
				})
				if err != nil {
					return listview.ActionResult{}, err
				}
				return ackResult(ack, "Email enviado a "+r.Email), nil
			},
			Apply: sentTag(TagEmail, sent),
		},
		{
			Kind: listview.ActionSendPaymentLink,
			Validate: func(r Inscripcion, _ listview.Payload) error {
				return listview.RequirePaymentTarget(r.Key(), r.NombreEstablecimiento, r.Email)
			},
			Call: func(ctx context.Context, r Inscripcion, _ listview.Payload) (listview.ActionResult, error) {
				ack, err := b.SendPaymentLink(ctx, api.SendPaymentLinkRequest{
					InscriptionID:         r.Key(),
					Email:                 strings.TrimSpace(r.Email),
					NombreEstablecimiento: r.NombreEstablecimiento,
				})
				if err != nil {
					return listview.ActionResult{}, err
				}
				return ackResult(ack, "Link de pago enviado a "+r.Email), nil
			},
			Apply: sentTag(TagCobro, sent),
		},
		logViewAction[Inscripcion](views, LogActionViewPDF, Inscripcion.Key),
	}
}

// PermisoActions binds the permit row actions.
func PermisoActions(b Backend, views ViewLogger) []listview.Action[Permiso] {
	sent := func(r *Permiso) *SentSet { return &r.SentStatuses }
	msg := func(r Permiso) api.PermisoMessageRequest {
		return api.PermisoMessageRequest{PermisoID: r.Key(), Email: strings.TrimSpace(r.Email), Nombre: r.Nombre}
	}
	return []listview.Action[Permiso]{
		{
			Kind: listview.ActionSendEmail,
			Validate: func(r Permiso, _ listview.Payload) error {
				return listview.RequireContact(r.Email)
			},
			Call: func(ctx context.Context, r Permiso, _ listview.Payload) (listview.ActionResult, error) {
				ack, err := b.SendPermisoEmail(ctx, msg(r))
				if err != nil {
					return listview.ActionResult{}, err
				}
				return ackResult(ack, "Email enviado a "+r.Email), nil
			},
			Apply: sentTag(TagEmail, sent),
		},
		{
			Kind: listview.ActionSendPaymentLink,
			Validate: func(r Permiso, _ listview.Payload) error {
				return listview.RequirePaymentTarget(r.Key(), r.Nombre, r.Email)
			},
			Call: func(ctx context.Context, r Permiso, _ listview.Payload) (listview.ActionResult, error) {
				ack, err := b.SendPermisoPaymentLink(ctx, msg(r))
				if err != nil {
					return listview.ActionResult{}, err
				}
				return ackResult(ack, "Link de pago enviado a "+r.Email), nil
			},
			Apply: sentTag(TagCobro, sent),
		},
		{
			Kind: listview.ActionSendCredential,
			Validate: func(r Permiso, _ listview.Payload) error {
				return listview.RequireContact(r.Email)
			},
			Call: func(ctx context.Context, r Permiso, _ listview.Payload) (listview.ActionResult, error) {
				ack, err := b.SendCredential(ctx, msg(r))
				if err != nil {
					return listview.ActionResult{}, err
				}
				return ackResult(ack, "Credencial enviada a "+r.Email), nil
			},
			Apply: sentTag(TagCredencial, sent),
		},
		{
			Kind: listview.ActionViewCredential,
			Call: func(ctx context.Context, r Permiso, p listview.Payload) (listview.ActionResult, error) {
				html, err := b.ViewCredential(ctx, r.Key())
				if err != nil {
					return listview.ActionResult{}, err
				}
				if views != nil {
					// Audit failures never block the view.
					_ = views.LogView(ctx, api.SentItemLog{Identifier: r.Key(), Action: LogActionViewCredential, Username: p.Get(FieldOperator)})
				}
				return listview.ActionResult{HTML: SanitizeCredential(html)}, nil
			},
		},
	}
}

func logViewAction[R any](views ViewLogger, action string, key func(R) string) listview.Action[R] {
	return listview.Action[R]{
		Kind:       listview.ActionLogView,
		BestEffort: true,
		Call: func(ctx context.Context, r R, p listview.Payload) (listview.ActionResult, error) {
			if views == nil {
				return listview.ActionResult{}, nil
			}
			err := views.LogView(ctx, api.SentItemLog{Identifier: key(r), Action: action, Username: p.Get(FieldOperator)})
			return listview.ActionResult{}, err
		},
	}
}

// ResActions binds the livestock transport row actions.
func ResActions(b Backend) []listview.Action[Res] {
	return []listview.Action[Res]{
		{
			Kind: listview.ActionToggleStatus,
			Call: func(ctx context.Context, r Res, p listview.Payload) (listview.ActionResult, error) {
				paid := targetPaid(r, p)
				ack, err := b.LogResAction(ctx, api.ResActionRequest{
					ID:      r.Key(),
					Action:  "toggle_status",
					Details: paidDetails(paid),
					IsPaid:  &paid,
				})
				if err != nil {
					return listview.ActionResult{}, err
				}
				return ackResult(ack, paidDetails(paid)), nil
			},
			Apply: func(r *Res, p listview.Payload, at time.Time) {
				paid := targetPaid(*r, p)
				r.IsPaid = paid
				r.prependHistory(at, paidDetails(paid))
			},
		},
		{
			Kind: listview.ActionSaveAmount,
			Validate: func(_ Res, p listview.Payload) error {
				return listview.RequireAmount(p.Get(FieldAmount))
			},
			Call: func(ctx context.Context, r Res, p listview.Payload) (listview.ActionResult, error) {
				amount := p.Get(FieldAmount)
				ack, err := b.LogResAction(ctx, api.ResActionRequest{
					ID:      r.Key(),
					Action:  "save_amount",
					Details: amountDetails(amount),
					Amount:  &amount,
				})
				if err != nil {
					return listview.ActionResult{}, err
				}
				return ackResult(ack, amountDetails(amount)), nil
			},
			Apply: func(r *Res, p listview.Payload, at time.Time) {
				amount := p.Get(FieldAmount)
				r.Monto = Text(amount)
				r.prependHistory(at, amountDetails(amount))
			},
		},
	}
}

// targetPaid reads the requested state, flipping the current one when absent.
func targetPaid(r Res, p listview.Payload) bool {
	if p.Get(FieldIsPaid) == "" {
		return !r.IsPaid
	}
	return p.Bool(FieldIsPaid)
}

func paidDetails(paid bool) string {
	if paid {
		return "Marcado como pagado"
	}
	return "Marcado como pendiente"
}

func amountDetails(amount string) string {
	return fmt.Sprintf("Monto actualizado a $%s", amount)
}

func (r *Res) prependHistory(at time.Time, details string) {
	h := make([]HistoryEntry, 0, len(r.History)+1)
	h = append(h, HistoryEntry{Timestamp: At(at), Details: details})
	r.History = append(h, r.History...)
}
