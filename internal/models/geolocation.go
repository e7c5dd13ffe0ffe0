package models

// NotAvailable is the sentinel used when reverse geocoding cannot produce an
// address. It is a real value downstream consumers display, distinct from an
// absent field.
const NotAvailable = "No Disponible"

// Geolocation is a resolved address for a coordinate pair.
type Geolocation struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	Department string `json:"department"`
}

// Unavailable returns the sentinel geolocation.
func Unavailable() *Geolocation {
	return &Geolocation{Address: NotAvailable, City: NotAvailable, Department: NotAvailable}
}

// Valid reports whether all three fields carry usable data.
func (g *Geolocation) Valid() bool {
	if g == nil {
		return false
	}
	return g.Address != "" && g.City != "" && g.Department != "" &&
		g.Address != NotAvailable && g.City != NotAvailable && g.Department != NotAvailable
}
