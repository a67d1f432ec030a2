package usecase

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/jhoicas/scale-monitor-api/internal/domain"
)

// p arma un path del backend escapando cada segmento variable.
func p(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}

func requireID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s es requerido", domain.ErrInvalidInput, name)
	}
	return nil
}

// validEmail exige una dirección simple (sin nombre visible).
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func validCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return fmt.Errorf("%w: lat y lng van juntos", domain.ErrInvalidInput)
	}
	if lat != nil && (*lat < -90 || *lat > 90 || *lng < -180 || *lng > 180) {
		return fmt.Errorf("%w: coordenadas fuera de rango", domain.ErrInvalidInput)
	}
	return nil
}
