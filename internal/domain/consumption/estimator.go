// Package consumption estima cuándo un cliente se quedará sin un artículo a partir
// de su historial de pedidos, con un modelo lineal de agotamiento.
package consumption

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

const hoursPerDay = 24

// Estimate resultado derivado del historial; no se persiste.
type Estimate struct {
	OrderCount        int
	FirstOrderDate    time.Time
	LastOrderDate     time.Time
	TotalPeriod       int // días, incluye el día del primer pedido
	TotalQuantity     float64
	DailyAverage      float64
	QuantityLastOrder float64
	DaysFromLastOrder int
	// EstimationQuantityLeft puede ser negativa: el cliente ya debería haber repuesto.
	EstimationQuantityLeft     float64
	AverageDaysBetweenOrders   float64
	DailyConsumptionPercentage float64
	// EstimatedDaysLeft días hasta agotar el último pedido; nil si no hay consumo.
	EstimatedDaysLeft *float64
}

// ParseOrderDate interpreta "DD-MM-YY" con año 2000+YY, en UTC.
func ParseOrderDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidOrderDate, s)
	}
	nums := [3]int{}
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidOrderDate, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidOrderDate, s)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], 2000+nums[2]
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidOrderDate, s)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normaliza 31-02 a marzo; eso es una fecha inválida.
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidOrderDate, s)
	}
	return t, nil
}

type datedOrder struct {
	date     time.Time
	quantity float64
}

// EstimateFrom calcula la estimación de consumo. Requiere al menos dos pedidos;
// con uno solo el periodo entre pedidos no está definido.
// Las cantidades no numéricas cuentan como 0.
func EstimateFrom(orders []entity.OrderHistoryEntry, now time.Time) (Estimate, error) {
	if len(orders) <= 1 {
		return Estimate{}, domain.ErrInsufficientHistory
	}

	dated := make([]datedOrder, 0, len(orders))
	for i, o := range orders {
		d, err := ParseOrderDate(o.OrderDate)
		if err != nil {
			return Estimate{}, fmt.Errorf("pedido %d: %w", i, err)
		}
		q, _ := o.Quantity.Float()
		dated = append(dated, datedOrder{date: d, quantity: q})
	}
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].date.Before(dated[j].date) })

	first, last := dated[0], dated[len(dated)-1]
	spanDays := daysBetween(first.date, last.date)

	var total float64
	for _, o := range dated {
		total += o.quantity
	}

	e := Estimate{
		OrderCount:        len(dated),
		FirstOrderDate:    first.date,
		LastOrderDate:     last.date,
		TotalPeriod:       spanDays + 1,
		TotalQuantity:     total,
		QuantityLastOrder: last.quantity,
		DaysFromLastOrder: int(math.Floor(now.Sub(last.date).Hours() / hoursPerDay)),
	}
	e.DailyAverage = e.TotalQuantity / float64(e.TotalPeriod)
	e.EstimationQuantityLeft = e.QuantityLastOrder - e.DailyAverage*float64(e.DaysFromLastOrder)
	e.AverageDaysBetweenOrders = float64(spanDays) / float64(e.OrderCount-1)
	if e.QuantityLastOrder > 0 {
		e.DailyConsumptionPercentage = e.DailyAverage / e.QuantityLastOrder * 100
	}
	if e.DailyAverage > 0 {
		left := e.EstimationQuantityLeft / e.DailyAverage
		e.EstimatedDaysLeft = &left
	}
	return e, nil
}

// daysBetween días completos entre dos fechas a medianoche UTC.
func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / hoursPerDay))
}
