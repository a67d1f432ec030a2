package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// CustomerUseCase clientes del vendedor y sus usuarios del portal.
type CustomerUseCase struct {
	api ports.Backend
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(api ports.Backend) *CustomerUseCase {
	return &CustomerUseCase{api: api}
}

// List lista los clientes visibles para la sesión.
func (uc *CustomerUseCase) List(ctx context.Context) ([]dto.CustomerResponse, error) {
	var list []entity.Customer
	if err := uc.api.Get(ctx, "customers", nil, &list); err != nil {
		return nil, err
	}
	out := make([]dto.CustomerResponse, 0, len(list))
	for i := range list {
		out = append(out, toCustomerResponse(&list[i]))
	}
	return out, nil
}

// ListEntities igual que List pero sin transformar (para rutas y análisis).
func (uc *CustomerUseCase) ListEntities(ctx context.Context) ([]entity.Customer, error) {
	var list []entity.Customer
	if err := uc.api.Get(ctx, "customers", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID obtiene un cliente.
func (uc *CustomerUseCase) GetByID(ctx context.Context, id string) (*dto.CustomerResponse, error) {
	c, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toCustomerResponse(c)
	return &resp, nil
}

// Get obtiene la entidad del cliente.
func (uc *CustomerUseCase) Get(ctx context.Context, id string) (*entity.Customer, error) {
	if err := requireID("customer_id", id); err != nil {
		return nil, err
	}
	var c entity.Customer
	if err := uc.api.Get(ctx, p("customers/%s", id), nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create valida ambos nombres y el email y crea el cliente.
func (uc *CustomerUseCase) Create(ctx context.Context, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := validateNames(in.NameHe, in.NameEn); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
	}
	if err := validCoordinates(in.Lat, in.Lng); err != nil {
		return nil, err
	}
	c := entity.Customer{
		Name:    entity.ComposeCustomerName(in.NameHe, in.NameEn),
		Email:   email,
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Lat:     in.Lat,
		Lng:     in.Lng,
	}
	var created entity.Customer
	if err := uc.api.Post(ctx, "customers", c, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		created = c
	}
	resp := toCustomerResponse(&created)
	return &resp, nil
}

// Update aplica los campos presentes. Si cambia un nombre se recompone con el otro actual.
func (uc *CustomerUseCase) Update(ctx context.Context, id string, in dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	c, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.NameHe != nil || in.NameEn != nil {
		he, en := c.SplitName()
		if in.NameHe != nil {
			he = *in.NameHe
		}
		if in.NameEn != nil {
			en = *in.NameEn
		}
		if err := validateNames(he, en); err != nil {
			return nil, err
		}
		c.Name = entity.ComposeCustomerName(he, en)
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if !validEmail(email) {
			return nil, fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
		}
		c.Email = email
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		c.Address = strings.TrimSpace(*in.Address)
	}
	if in.Lat != nil || in.Lng != nil {
		if err := validCoordinates(in.Lat, in.Lng); err != nil {
			return nil, err
		}
		c.Lat, c.Lng = in.Lat, in.Lng
	}

	var updated entity.Customer
	if err := uc.api.Put(ctx, p("customers/%s", id), c, &updated); err != nil {
		return nil, err
	}
	if updated.ID == "" {
		updated = *c
	}
	resp := toCustomerResponse(&updated)
	return &resp, nil
}

// Delete elimina el cliente.
func (uc *CustomerUseCase) Delete(ctx context.Context, id string) error {
	if err := requireID("customer_id", id); err != nil {
		return err
	}
	return uc.api.Delete(ctx, p("customers/%s", id), nil)
}

// ListUsers usuarios con acceso al portal del cliente.
func (uc *CustomerUseCase) ListUsers(ctx context.Context, customerID string) ([]entity.CustomerUser, error) {
	if err := requireID("customer_id", customerID); err != nil {
		return nil, err
	}
	var users []entity.CustomerUser
	if err := uc.api.Get(ctx, p("customers/%s/users", customerID), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AddUser da acceso al portal del cliente a un email.
func (uc *CustomerUseCase) AddUser(ctx context.Context, customerID string, in dto.AddCustomerUserRequest) error {
	if err := requireID("customer_id", customerID); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validEmail(email) {
		return fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
	}
	body := map[string]string{"customer_id": customerID, "user_email": email}
	if in.Role != "" {
		body["role"] = in.Role
	}
	return uc.api.Post(ctx, "customers/user", body, nil)
}

// RemoveUser revoca el acceso del email al portal del cliente.
func (uc *CustomerUseCase) RemoveUser(ctx context.Context, customerID, email string) error {
	if err := requireID("customer_id", customerID); err != nil {
		return err
	}
	if err := requireID("email", email); err != nil {
		return err
	}
	return uc.api.Delete(ctx, p("customers/%s/users/email/%s", customerID, email), nil)
}

// Me cliente asociado al usuario de la sesión (rol customer).
func (uc *CustomerUseCase) Me(ctx context.Context) (*dto.CustomerResponse, error) {
	var c entity.Customer
	if err := uc.api.Get(ctx, "customers/users/me", nil, &c); err != nil {
		return nil, err
	}
	resp := toCustomerResponse(&c)
	return &resp, nil
}

func validateNames(he, en string) error {
	if strings.TrimSpace(he) == "" || strings.TrimSpace(en) == "" {
		return fmt.Errorf("%w: se requieren el nombre en hebreo y en inglés", domain.ErrInvalidInput)
	}
	if strings.Contains(he, " - ") || strings.Contains(en, " - ") {
		return fmt.Errorf("%w: los nombres no pueden contener \" - \"", domain.ErrInvalidInput)
	}
	return nil
}

func toCustomerResponse(c *entity.Customer) dto.CustomerResponse {
	he, en := c.SplitName()
	return dto.CustomerResponse{
		ID:      c.ID,
		Name:    c.Name,
		NameHe:  he,
		NameEn:  en,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		Lat:     c.Lat,
		Lng:     c.Lng,
	}
}
