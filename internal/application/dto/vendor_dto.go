package dto

// VendorRequest alta o edición de un vendedor.
type VendorRequest struct {
	Name          string   `json:"name" validate:"required"`
	ContactPerson string   `json:"contact_person"`
	Email         string   `json:"email" validate:"omitempty,email"`
	Phone         string   `json:"phone"`
	Address       string   `json:"address"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
}

// AddressRequest dirección guardada del vendedor.
type AddressRequest struct {
	Label     string   `json:"label" validate:"required"`
	Address   string   `json:"address" validate:"required"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	IsDefault bool     `json:"is_default"`
}
