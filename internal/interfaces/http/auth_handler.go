package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/auth"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
)

// AuthHandler maneja registro, inicio de sesión y la sesión actual.
type AuthHandler struct {
	uc           *auth.AuthUseCase
	cookieDomain string
	secureCookie bool
}

// NewAuthHandler construye el handler de auth. cookieDomain vacío deja la cookie en el host actual.
func NewAuthHandler(uc *auth.AuthUseCase, cookieDomain string, secureCookie bool) *AuthHandler {
	return &AuthHandler{uc: uc, cookieDomain: cookieDomain, secureCookie: secureCookie}
}

// SignUp godoc
// @Summary      Registrar usuario
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SignUpRequest  true  "email, password, name, phone"
// @Success      201   {object}  dto.SignUpResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/signup [post]
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var in dto.SignUpRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.Email == "" || in.Password == "" {
		return validation(c, "email y password son requeridos")
	}
	if len(in.Password) < 8 {
		return validation(c, "password debe tener al menos 8 caracteres")
	}
	out, err := h.uc.SignUp(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ConfirmSignUp godoc
// @Summary      Confirmar registro con el código enviado por email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConfirmSignUpRequest  true  "email, code"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/confirm [post]
func (h *AuthHandler) ConfirmSignUp(c *fiber.Ctx) error {
	var in dto.ConfirmSignUpRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.uc.ConfirmSignUp(c.UserContext(), in); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "email verificado"})
}

// ResendCode godoc
// @Summary      Reenviar código de verificación
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmailRequest  true  "email"
// @Success      200   {object}  dto.MessageResponse
// @Router       /api/auth/resend-code [post]
func (h *AuthHandler) ResendCode(c *fiber.Ctx) error {
	var in dto.EmailRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.uc.ResendCode(c.UserContext(), in); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "código reenviado"})
}

// SignIn godoc
// @Summary      Iniciar sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/auth/signin [post]
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.Email == "" || in.Password == "" {
		return validation(c, "email y password son requeridos")
	}
	out, err := h.uc.Login(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	h.setSessionCookie(c, out)
	return c.JSON(out)
}

// OAuthCallback godoc
// @Summary      Canjear el código OAuth (Google) por una sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OAuthCallbackRequest  true  "code"
// @Success      200   {object}  dto.LoginResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/google/callback [post]
func (h *AuthHandler) OAuthCallback(c *fiber.Ctx) error {
	var in dto.OAuthCallbackRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.OAuthCallback(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	h.setSessionCookie(c, out)
	return c.JSON(out)
}

// ForgotPassword godoc
// @Summary      Solicitar código de recuperación de contraseña
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmailRequest  true  "email"
// @Success      200   {object}  dto.MessageResponse
// @Router       /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var in dto.EmailRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.uc.ForgotPassword(c.UserContext(), in); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "si el email existe, se envió un código"})
}

// ResetPassword godoc
// @Summary      Restablecer contraseña con el código
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ResetPasswordRequest  true  "email, code, new_password"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var in dto.ResetPasswordRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if len(in.NewPassword) < 8 {
		return validation(c, "new_password debe tener al menos 8 caracteres")
	}
	if err := h.uc.ResetPassword(c.UserContext(), in); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "contraseña actualizada"})
}

// SignOut godoc
// @Summary      Cerrar sesión
// @Tags         auth
// @Security     Bearer
// @Produce      json
// @Success      200   {object}  dto.MessageResponse
// @Router       /api/auth/signout [post]
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	if err := h.uc.Logout(c.UserContext(), GetSessionID(c)); err != nil {
		return respondError(c, err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.cookieDomain,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(dto.MessageResponse{Message: "sesión cerrada"})
}

// ChangePassword godoc
// @Summary      Cambiar contraseña
// @Tags         auth
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ChangePasswordRequest  true  "old_password, new_password"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var in dto.ChangePasswordRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.uc.ChangePassword(c.UserContext(), GetSessionID(c), in); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "contraseña actualizada"})
}

// Me godoc
// @Summary      Usuario de la sesión actual
// @Tags         auth
// @Security     Bearer
// @Produce      json
// @Success      200   {object}  dto.UserResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	out, err := h.uc.Me(c.UserContext(), GetSessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Refresh godoc
// @Summary      Renovar el token de sesión
// @Tags         auth
// @Security     Bearer
// @Produce      json
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	out, err := h.uc.Refresh(c.UserContext(), GetSessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	h.setSessionCookie(c, out)
	return c.JSON(out)
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, out *dto.LoginResponse) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    out.Token,
		Path:     "/",
		Domain:   h.cookieDomain,
		Expires:  time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
