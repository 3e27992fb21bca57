package api

import "context"

// TotalInscripciones is returned by /stats/total-inscripciones.
type TotalInscripciones struct {
	Total int `json:"total"`
}

// PermisoStats is returned by /permisos/stats.
type PermisoStats struct {
	Total      int `json:"total"`
	Pagados    int `json:"pagados"`
	Pendientes int `json:"pendientes"`
}

// Recaudaciones is returned by /stats/recaudaciones.
type Recaudaciones struct {
	Total         float64 `json:"total_recaudado"`
	Inscripciones float64 `json:"inscripciones"`
	Permisos      float64 `json:"permisos"`
}

// TotalInscripciones fetches the registration counter.
func (c *Client) TotalInscripciones(ctx context.Context) (TotalInscripciones, error) {
	var out TotalInscripciones
	err := c.getJSON(ctx, "stats total inscripciones", "stats/total-inscripciones", nil, &out)
	return out, err
}

// PermisoStats fetches permit counters.
func (c *Client) PermisoStats(ctx context.Context) (PermisoStats, error) {
	var out PermisoStats
	err := c.getJSON(ctx, "stats permisos", "permisos/stats", nil, &out)
	return out, err
}

// Recaudaciones fetches collected amounts.
func (c *Client) Recaudaciones(ctx context.Context) (Recaudaciones, error) {
	var out Recaudaciones
	err := c.getJSON(ctx, "stats recaudaciones", "stats/recaudaciones", nil, &out)
	return out, err
}
