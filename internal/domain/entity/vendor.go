package entity

// Vendor distribuidor que atiende a los clientes y planifica rutas de entrega.
type Vendor struct {
	ID            string   `json:"vendor_id"`
	Name          string   `json:"name"`
	ContactPerson string   `json:"contact_person,omitempty"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Address       string   `json:"address,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
}

// Address dirección guardada del vendedor (bodega, casa) usada como origen de rutas.
type Address struct {
	ID        string  `json:"address_id,omitempty"`
	Label     string  `json:"label"`
	Address   string  `json:"address"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	IsDefault bool    `json:"is_default,omitempty"`
}

// Workspace espacio de trabajo al que pertenece el usuario.
type Workspace struct {
	ID   string `json:"workspace_id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}
