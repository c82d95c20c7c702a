package dto

import "time"

// CreateVaccineRequest body para POST /api/vaccines.
type CreateVaccineRequest struct {
	Name          string `json:"name"`
	DosesRequired int    `json:"doses_required"`
}

// VaccineResponse vacuna del catálogo.
type VaccineResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	DosesRequired int       `json:"doses_required"`
	CreatedAt     time.Time `json:"created_at"`
}
