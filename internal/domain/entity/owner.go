package entity

// OwnerType nivel de la jerarquía que puede custodiar stock de vacunas.
type OwnerType string

// Niveles de la jerarquía, de raíz a hoja.
const (
	OwnerNational     OwnerType = "NATIONAL"
	OwnerRegional     OwnerType = "REGIONAL"
	OwnerDistrict     OwnerType = "DISTRICT"
	OwnerHealthCenter OwnerType = "HEALTHCENTER"
)

// parentLevel nivel padre directo de cada nivel (tabla de despacho, no switch por strings).
var parentLevel = map[OwnerType]OwnerType{
	OwnerRegional:     OwnerNational,
	OwnerDistrict:     OwnerRegional,
	OwnerHealthCenter: OwnerDistrict,
}

// ParseOwnerType valida un nivel recibido por la API. Devuelve ok=false si no existe.
func ParseOwnerType(s string) (OwnerType, bool) {
	switch OwnerType(s) {
	case OwnerNational, OwnerRegional, OwnerDistrict, OwnerHealthCenter:
		return OwnerType(s), true
	}
	return "", false
}

// OwnerRef referencia a un nodo de la jerarquía. ID es vacío solo para NATIONAL.
type OwnerRef struct {
	Type OwnerType
	ID   string
}

// NationalOwner devuelve la referencia al nodo raíz (único, sin ID).
func NationalOwner() OwnerRef {
	return OwnerRef{Type: OwnerNational}
}

// IsValid verifica la forma de la referencia: nivel conocido e ID presente salvo en NATIONAL.
func (o OwnerRef) IsValid() bool {
	switch o.Type {
	case OwnerNational:
		return o.ID == ""
	case OwnerRegional, OwnerDistrict, OwnerHealthCenter:
		return o.ID != ""
	}
	return false
}

// ParentLevel devuelve el nivel padre directo y ok=false para NATIONAL (no tiene padre).
func (o OwnerRef) ParentLevel() (OwnerType, bool) {
	p, ok := parentLevel[o.Type]
	return p, ok
}

// Equal compara dos referencias (nivel + ID).
func (o OwnerRef) Equal(other OwnerRef) bool {
	return o.Type == other.Type && o.ID == other.ID
}
