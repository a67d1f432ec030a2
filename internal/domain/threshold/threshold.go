// Package threshold clasifica el peso actual de una báscula frente a los límites
// upper/lower del producto y ordena productos por urgencia.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// Status estado de un producto según su última medición.
type Status string

const (
	StatusGood     Status = "good"     // peso ≥ upper
	StatusWarning  Status = "warning"  // lower ≤ peso < upper
	StatusCritical Status = "critical" // peso < lower
	StatusUnknown  Status = "unknown"  // sin medición o sin límites
)

// priority orden de listado: primero lo más urgente.
var priority = map[Status]int{
	StatusCritical: 0,
	StatusWarning:  1,
	StatusGood:     2,
	StatusUnknown:  3,
}

// Info estado y distancia al límite relevante (siempre ≥ 0 salvo unknown).
type Info struct {
	Status   Status  `json:"status"`
	Distance float64 `json:"distance"`
}

// Classify calcula el estado de un peso. Un peso nil o límites nil dan unknown;
// un peso 0 es una lectura real (báscula vacía) y se clasifica normalmente.
func Classify(weight *float64, t *entity.Thresholds) Info {
	if weight == nil || t == nil {
		return Info{Status: StatusUnknown}
	}
	v := *weight
	switch {
	case v >= t.Upper:
		return Info{Status: StatusGood, Distance: v - t.Upper}
	case v >= t.Lower:
		return Info{Status: StatusWarning, Distance: v - t.Lower}
	default:
		return Info{Status: StatusCritical, Distance: t.Lower - v}
	}
}

// Validate comprueba que upper > lower, upper > 0 y lower ≥ 0.
func Validate(t entity.Thresholds) error {
	if math.IsNaN(t.Upper) || math.IsNaN(t.Lower) || math.IsInf(t.Upper, 0) || math.IsInf(t.Lower, 0) {
		return fmt.Errorf("%w: los límites deben ser números", domain.ErrInvalidInput)
	}
	if t.Upper <= t.Lower {
		return fmt.Errorf("%w: upper debe ser mayor que lower", domain.ErrInvalidInput)
	}
	if t.Upper <= 0 || t.Lower < 0 {
		return fmt.Errorf("%w: los límites no pueden ser negativos", domain.ErrInvalidInput)
	}
	return nil
}

// Percentage posición del valor entre lower (0) y upper (100), redondeada.
func Percentage(value float64, t entity.Thresholds) int {
	if value >= t.Upper {
		return 100
	}
	if value <= t.Lower {
		return 0
	}
	return int(math.Round((value - t.Lower) / (t.Upper - t.Lower) * 100))
}

// Ranked producto con su estado calculado.
type Ranked struct {
	Product entity.Product
	Info    Info
}

// Rank clasifica cada producto con su medición (weights por scale_id) y los ordena:
// productos sin báscula al final; luego critical, warning, good, unknown;
// dentro del mismo estado, mayor distancia primero.
func Rank(products []entity.Product, weights map[string]*float64) []Ranked {
	out := make([]Ranked, 0, len(products))
	for _, p := range products {
		var w *float64
		if p.HasScale() {
			w = weights[p.ScaleID]
		}
		out = append(out, Ranked{Product: p, Info: Classify(w, p.Thresholds)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Product.HasScale() != b.Product.HasScale() {
			return a.Product.HasScale()
		}
		if !a.Product.HasScale() {
			return false
		}
		if priority[a.Info.Status] != priority[b.Info.Status] {
			return priority[a.Info.Status] < priority[b.Info.Status]
		}
		return a.Info.Distance > b.Info.Distance
	})
	return out
}

// NotificationTarget destino SMS de una alerta de límite.
type NotificationTarget struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// Notifications alertas configuradas al cruzar cada límite.
type Notifications struct {
	Upper *NotificationTarget `json:"upper"`
	Lower *NotificationTarget `json:"lower"`
}

var e164 = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ValidateNotifications exige ambos destinos con teléfono E.164 y mensaje.
func ValidateNotifications(n Notifications) error {
	if n.Upper == nil || n.Lower == nil {
		return fmt.Errorf("%w: se deben configurar ambas notificaciones", domain.ErrInvalidInput)
	}
	if !e164.MatchString(n.Upper.PhoneNumber) {
		return fmt.Errorf("%w: teléfono inválido para el límite superior", domain.ErrInvalidInput)
	}
	if !e164.MatchString(n.Lower.PhoneNumber) {
		return fmt.Errorf("%w: teléfono inválido para el límite inferior", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(n.Upper.Message) == "" {
		return fmt.Errorf("%w: el mensaje del límite superior es requerido", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(n.Lower.Message) == "" {
		return fmt.Errorf("%w: el mensaje del límite inferior es requerido", domain.ErrInvalidInput)
	}
	return nil
}
