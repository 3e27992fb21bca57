package api

import (
	"context"
	"net/url"
)

// Ack is the acknowledgement returned by action endpoints.
type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendEmailRequest asks the backend to email a registration holder.
type SendEmailRequest struct {
	InscriptionID         string `json:"inscription_id"`
	Email                 string `json:"email"`
	NombreEstablecimiento string `json:"nombre_establecimiento"`
}

// SendPaymentLinkRequest asks the backend to create and email a payment link for a registration.
type SendPaymentLinkRequest struct {
	InscriptionID         string `json:"inscription_id"`
	Email                 string `json:"email"`
	NombreEstablecimiento string `json:"nombre_establecimiento"`
}

// PermisoMessageRequest targets a permit holder (payment link, email or credential).
type PermisoMessageRequest struct {
	PermisoID string `json:"permiso_id"`
	Email     string `json:"email"`
	Nombre    string `json:"nombre"`
}

// SentItemLog is an audit record appended through /log-sent-item.
type SentItemLog struct {
	Identifier string `json:"identifier"`
	Action     string `json:"action"`
	Username   string `json:"username,omitempty"`
}

// ResActionRequest appends a history record to a livestock transport record.
type ResActionRequest struct {
	ID      string  `json:"id"`
	Action  string  `json:"action"`
	Details string  `json:"details"`
	Amount  *string `json:"amount,omitempty"`
	IsPaid  *bool   `json:"is_paid,omitempty"`
}

// SendEmail triggers /send-email.
func (c *Client) SendEmail(ctx context.Context, req SendEmailRequest) (Ack, error) {
	var ack Ack
	err := c.postJSON(ctx, "send email", "send-email", req, &ack)
	return ack, err
}

// SendPaymentLink triggers /send-payment-link.
func (c *Client) SendPaymentLink(ctx context.Context, req SendPaymentLinkRequest) (Ack, error) {
	var ack Ack
	err := c.postJSON(ctx, "send payment link", "send-payment-link", req, &ack)
	return ack, err
}

// SendPermisoPaymentLink triggers /send-permiso-payment-link.
func (c *Client) SendPermisoPaymentLink(ctx context.Context, req PermisoMessageRequest) (Ack, error) {
	var ack Ack
	err := c.postJSON(ctx, "send permiso payment link", "send-permiso-payment-link", req, &ack)
	return ack, err
}

// SendPermisoEmail triggers /send-permiso-email.
func (c *Client) SendPermisoEmail(ctx context.Context, req PermisoMessageRequest) (Ack, error) {
	var ack Ack
	err := c.postJSON(ctx, "send permiso email", "send-permiso-email", req, &ack)
	return ack, err
}

// SendCredential triggers /send-credential.
func (c *Client) SendCredential(ctx context.Context, req PermisoMessageRequest) (Ack, error) {
	var ack Ack
	err := c.postJSON(ctx, "send credential", "send-credential", req, &ack)
	return ack, err
}

// ViewCredential fetches the renderable HTML fragment for a permit credential.
func (c *Client) ViewCredential(ctx context.Context, permisoID string) (string, error) {
	return c.getText(ctx, "view credential", "view-credential/"+url.PathEscape(permisoID))
}

// LogSentItem appends an audit record.
func (c *Client) LogSentItem(ctx context.Context, entry SentItemLog) error {
	return c.postJSON(ctx, "log sent item", "log-sent-item", entry, nil)
}

// LogResAction appends a history record to a res, optionally carrying amount or paid state.
func (c *Client) LogResAction(ctx context.Context, req ResActionRequest) (Ack, error) {
	var ack Ack
	err := c.postJSON(ctx, "log res action", "reses/log-action", req, &ack)
	return ack, err
}

// LinkData triggers the backend reconciliation job.
func (c *Client) LinkData(ctx context.Context) (Ack, error) {
	var ack Ack
	err := c.postJSON(ctx, "link data", "link-data", nil, &ack)
	return ack, err
}

// SentItems returns the map of identifier to last sent action.
func (c *Client) SentItems(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if err := c.getJSON(ctx, "sent items", "sent-items", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
