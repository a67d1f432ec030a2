package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims identifica al usuario del dashboard y la sesión que guarda sus tokens del backend.
// El rol viaja en el token para que el middleware RBAC no tenga que consultar el backend.
type SessionClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	VendorID  string `json:"vendor_id,omitempty"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"` // "admin" | "vendor" | "customer"
}

type claims struct {
	jwt.RegisteredClaims
	SessionClaims
}

// Generate genera un token JWT firmado para la sesión.
func Generate(secret string, sc SessionClaims, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	if sc.SessionID == "" {
		return "", fmt.Errorf("jwt: session_id vacío")
	}
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sc.UserID,
			ID:        sc.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		SessionClaims: sc,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secret))
}

// Parse valida el token y devuelve los claims de sesión.
// Retorna error si el token es inválido, expirado o tiene firma incorrecta.
func Parse(secret, tokenString string) (SessionClaims, error) {
	if secret == "" {
		return SessionClaims{}, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return SessionClaims{}, err
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return SessionClaims{}, fmt.Errorf("claims inválidos")
	}
	if c.SessionID == "" {
		return SessionClaims{}, fmt.Errorf("claims inválidos: sin session_id")
	}
	return c.SessionClaims, nil
}
