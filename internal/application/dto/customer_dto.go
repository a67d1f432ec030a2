package dto

// CreateCustomerRequest body para POST /api/customers. El nombre se guarda como
// "<name_he> - <name_en>".
type CreateCustomerRequest struct {
	NameHe  string   `json:"name_he" validate:"required"`
	NameEn  string   `json:"name_en" validate:"required"`
	Email   string   `json:"email" validate:"required,email"`
	Phone   string   `json:"phone"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// UpdateCustomerRequest campos opcionales; ambos nombres se envían juntos.
type UpdateCustomerRequest struct {
	NameHe  *string  `json:"name_he"`
	NameEn  *string  `json:"name_en"`
	Email   *string  `json:"email" validate:"omitempty,email"`
	Phone   *string  `json:"phone"`
	Address *string  `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// CustomerResponse cliente con el nombre separado por idioma.
type CustomerResponse struct {
	ID      string   `json:"customer_id"`
	Name    string   `json:"name"`
	NameHe  string   `json:"name_he"`
	NameEn  string   `json:"name_en"`
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// AddCustomerUserRequest da acceso al portal del cliente a un email.
type AddCustomerUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"`
}
