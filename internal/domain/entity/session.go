package entity

import "time"

// Roles del dashboard.
const (
	RoleAdmin    = "admin"
	RoleVendor   = "vendor"
	RoleCustomer = "customer"
)

// Session sesión del dashboard: identidad del usuario y sus tokens del backend.
// Los tokens nunca salen del servidor; el navegador solo recibe el JWT de sesión.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	VendorID     string    `json:"vendor_id,omitempty"`
	Role         string    `json:"role"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`

	// IdentityToken access token del proveedor de identidad (cambio de contraseña, sign out).
	IdentityToken string `json:"identity_token,omitempty"`
}

// ExpiresWithin indica si el access token vence dentro de d (o ya venció).
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(s.ExpiresAt)
}
