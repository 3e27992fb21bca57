package api

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// LookupResult is the response of the fiscalizador lookup endpoints.
type LookupResult struct {
	Found   bool             `json:"found"`
	Total   int              `json:"total"`
	Results []map[string]any `json:"results"`
}

// ErrLookupCriteria is returned when a permit lookup has neither id nor dni.
var ErrLookupCriteria = errors.New("api: lookup requires id or dni")

// LookupInscripcion searches registrations by CUIT. Dashes and spaces are ignored.
func (c *Client) LookupInscripcion(ctx context.Context, cuit string) (LookupResult, error) {
	cuit = NormalizeCUIT(cuit)
	if cuit == "" {
		return LookupResult{}, ErrLookupCriteria
	}
	var out LookupResult
	err := c.getJSON(ctx, "lookup inscripcion", "fiscalizador/inscripcion", url.Values{"cuit": {cuit}}, &out)
	return out, err
}

// LookupPermiso searches permits by permit id and/or holder DNI.
func (c *Client) LookupPermiso(ctx context.Context, id, dni string) (LookupResult, error) {
	id = strings.TrimSpace(id)
	dni = NormalizeDNI(dni)
	if id == "" && dni == "" {
		return LookupResult{}, ErrLookupCriteria
	}
	query := url.Values{}
	if id != "" {
		query.Set("id", id)
	}
	if dni != "" {
		query.Set("dni", dni)
	}
	var out LookupResult
	err := c.getJSON(ctx, "lookup permiso", "fiscalizador/permiso", query, &out)
	return out, err
}

// NormalizeCUIT strips separators from a CUIT.
func NormalizeCUIT(v string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(v))
}

// NormalizeDNI strips thousands separators from a DNI.
func NormalizeDNI(v string) string {
	return strings.NewReplacer(".", "", " ", "").Replace(strings.TrimSpace(v))
}
