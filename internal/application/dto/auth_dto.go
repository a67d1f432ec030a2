package dto

// SignUpRequest registro con email y contraseña.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"omitempty,max=200"`
	Phone    string `json:"phone" validate:"omitempty"`
}

// SignUpResponse indica si falta confirmar el email.
type SignUpResponse struct {
	UserConfirmed bool   `json:"user_confirmed"`
	Message       string `json:"message"`
}

// ConfirmSignUpRequest código recibido por email.
type ConfirmSignUpRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// EmailRequest operaciones que solo requieren el email (reenviar código, olvidé contraseña).
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginRequest entrada para iniciar sesión.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest nueva contraseña con el código de recuperación.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordRequest cambio de contraseña del usuario autenticado.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// OAuthCallbackRequest código del inicio de sesión federado.
type OAuthCallbackRequest struct {
	Code string `json:"code" validate:"required"`
}

// UserResponse usuario de la sesión actual.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	VendorID string `json:"vendor_id,omitempty"`
}

// LoginResponse JWT de sesión y usuario.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expires_in"` // segundos
	User      UserResponse `json:"user"`
}
