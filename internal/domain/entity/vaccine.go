package entity

import "time"

// Vaccine vacuna del esquema (dato de referencia, inmutable para el motor de stock).
type Vaccine struct {
	ID            string
	Name          string
	DosesRequired int // dosis del esquema completo
	CreatedAt     time.Time
}
