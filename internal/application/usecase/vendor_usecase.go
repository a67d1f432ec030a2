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

// VendorUseCase vendedores (administración), perfil propio, direcciones y espacios de trabajo.
type VendorUseCase struct {
	api ports.Backend
}

// NewVendorUseCase construye el caso de uso.
func NewVendorUseCase(api ports.Backend) *VendorUseCase {
	return &VendorUseCase{api: api}
}

// List lista todos los vendedores (solo admin).
func (uc *VendorUseCase) List(ctx context.Context) ([]entity.Vendor, error) {
	var list []entity.Vendor
	if err := uc.api.Get(ctx, "vendors", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID obtiene un vendedor.
func (uc *VendorUseCase) GetByID(ctx context.Context, id string) (*entity.Vendor, error) {
	if err := requireID("vendor_id", id); err != nil {
		return nil, err
	}
	var v entity.Vendor
	if err := uc.api.Get(ctx, p("vendors/%s", id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create da de alta un vendedor.
func (uc *VendorUseCase) Create(ctx context.Context, in dto.VendorRequest) (*entity.Vendor, error) {
	v, err := vendorFrom(in)
	if err != nil {
		return nil, err
	}
	var created entity.Vendor
	if err := uc.api.Post(ctx, "vendors", v, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return v, nil
	}
	return &created, nil
}

// Update reemplaza los datos de un vendedor.
func (uc *VendorUseCase) Update(ctx context.Context, id string, in dto.VendorRequest) (*entity.Vendor, error) {
	if err := requireID("vendor_id", id); err != nil {
		return nil, err
	}
	v, err := vendorFrom(in)
	if err != nil {
		return nil, err
	}
	v.ID = id
	return uc.put(ctx, p("vendors/%s", id), v)
}

// Delete elimina un vendedor.
func (uc *VendorUseCase) Delete(ctx context.Context, id string) error {
	if err := requireID("vendor_id", id); err != nil {
		return err
	}
	return uc.api.Delete(ctx, p("vendors/%s", id), nil)
}

// Me perfil del vendedor de la sesión.
func (uc *VendorUseCase) Me(ctx context.Context) (*entity.Vendor, error) {
	var v entity.Vendor
	if err := uc.api.Get(ctx, "vendors/me", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateMe actualiza el perfil del vendedor de la sesión.
func (uc *VendorUseCase) UpdateMe(ctx context.Context, in dto.VendorRequest) (*entity.Vendor, error) {
	v, err := vendorFrom(in)
	if err != nil {
		return nil, err
	}
	return uc.put(ctx, "vendors/me", v)
}

// Addresses direcciones guardadas (orígenes de ruta).
func (uc *VendorUseCase) Addresses(ctx context.Context) ([]entity.Address, error) {
	var list []entity.Address
	if err := uc.api.Get(ctx, "vendors/addresses", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AddAddress guarda una dirección nueva.
func (uc *VendorUseCase) AddAddress(ctx context.Context, in dto.AddressRequest) (*entity.Address, error) {
	label, addr := strings.TrimSpace(in.Label), strings.TrimSpace(in.Address)
	if label == "" || addr == "" {
		return nil, fmt.Errorf("%w: etiqueta y dirección son requeridas", domain.ErrInvalidInput)
	}
	if err := validCoordinates(in.Lat, in.Lng); err != nil {
		return nil, err
	}
	a := entity.Address{Label: label, Address: addr, IsDefault: in.IsDefault}
	if in.Lat != nil {
		a.Lat, a.Lng = *in.Lat, *in.Lng
	}
	var created entity.Address
	if err := uc.api.Post(ctx, "vendors/addresses", a, &created); err != nil {
		return nil, err
	}
	if created.Address == "" {
		return &a, nil
	}
	return &created, nil
}

// Workspaces espacios de trabajo del usuario.
func (uc *VendorUseCase) Workspaces(ctx context.Context) ([]entity.Workspace, error) {
	var list []entity.Workspace
	if err := uc.api.Get(ctx, "vendors/workspaces", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (uc *VendorUseCase) put(ctx context.Context, path string, v *entity.Vendor) (*entity.Vendor, error) {
	var updated entity.Vendor
	if err := uc.api.Put(ctx, path, v, &updated); err != nil {
		return nil, err
	}
	if updated.ID == "" {
		return v, nil
	}
	return &updated, nil
}

func vendorFrom(in dto.VendorRequest) (*entity.Vendor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre es requerido", domain.ErrInvalidInput)
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !validEmail(email) {
		return nil, fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
	}
	if err := validCoordinates(in.Lat, in.Lng); err != nil {
		return nil, err
	}
	return &entity.Vendor{
		Name:          name,
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		Email:         email,
		Phone:         strings.TrimSpace(in.Phone),
		Address:       strings.TrimSpace(in.Address),
		Lat:           in.Lat,
		Lng:           in.Lng,
	}, nil
}
