package entity

import (
	"strings"
	"time"
)

// Customer cliente del vendedor; sus productos se monitorean con básculas.
// El nombre se guarda como "<nombre hebreo> - <nombre inglés>".
type Customer struct {
	ID        string     `json:"customer_id"`
	VendorID  string     `json:"vendor_id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	Lat       *float64   `json:"lat,omitempty"`
	Lng       *float64   `json:"lng,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// customerNameSep separa los nombres hebreo e inglés dentro de Name.
const customerNameSep = " - "

// ComposeCustomerName construye el nombre bilingüe.
func ComposeCustomerName(hebrew, english string) string {
	return strings.TrimSpace(hebrew) + customerNameSep + strings.TrimSpace(english)
}

// SplitName devuelve (hebreo, inglés). Si el nombre no trae separador, todo se considera hebreo.
func (c *Customer) SplitName() (hebrew, english string) {
	parts := strings.SplitN(c.Name, customerNameSep, 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// Location devuelve las coordenadas si el backend las tiene.
func (c *Customer) Location() (LatLng, bool) {
	if c.Lat == nil || c.Lng == nil {
		return LatLng{}, false
	}
	return LatLng{Lat: *c.Lat, Lng: *c.Lng}, true
}

// CustomerUser usuario con acceso al portal de un cliente.
type CustomerUser struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
}
