package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/backend"
	"github.com/jhoicas/scale-monitor-api/pkg/jwt"
)

// Locals keys para los claims de la sesión en Fiber.
const (
	LocalUserID    = "user_id"
	LocalEmail     = "email"
	LocalVendorID  = "vendor_id"
	LocalSessionID = "session_id"
	LocalRole      = "role"
)

// SessionCookie nombre de la cookie que lleva el JWT de sesión.
const SessionCookie = "session"

// AuthMiddleware valida el JWT de sesión (Bearer o cookie "session") y carga los claims en c.Locals.
// La sesión viaja además en el contexto de usuario para que el cliente del backend firme las llamadas.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, code, msg := bearerOrCookie(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: code, Message: msg})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalVendorID, claims.VendorID)
		c.Locals(LocalSessionID, claims.SessionID)
		c.Locals(LocalRole, claims.Role)
		c.SetUserContext(backend.WithSession(c.UserContext(), claims.SessionID))
		return c.Next()
	}
}

func bearerOrCookie(c *fiber.Ctx) (token, code, msg string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		if ck := strings.TrimSpace(c.Cookies(SessionCookie)); ck != "" {
			return ck, "", ""
		}
		return "", "MISSING_TOKEN", "Authorization header requerido"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "INVALID_TOKEN", "formato: Bearer <token>"
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", "MISSING_TOKEN", "token vacío"
	}
	return token, "", ""
}

// RequireRole permite el paso solo a los roles indicados. Debe ir después de AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		if _, ok := allowed[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permiso para este recurso"})
		}
		return c.Next()
	}
}

func local(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string { return local(c, LocalUserID) }

// GetVendorID devuelve el vendor de la sesión; vacío si no se resolvió al iniciar sesión.
func GetVendorID(c *fiber.Ctx) string { return local(c, LocalVendorID) }

// GetSessionID devuelve el id de la sesión que guarda los tokens del backend.
func GetSessionID(c *fiber.Ctx) string { return local(c, LocalSessionID) }

// GetRole devuelve el rol del usuario autenticado.
func GetRole(c *fiber.Ctx) string { return local(c, LocalRole) }
