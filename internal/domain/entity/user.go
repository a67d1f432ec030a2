package entity

// TokenSet tokens emitidos por el proveedor de identidad o por el refresh del backend.
type TokenSet struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int // segundos
}

// Identity usuario autenticado según el proveedor de identidad.
type Identity struct {
	Subject  string
	Email    string
	Verified bool
	Groups   []string
}
