package consumption

// Level nivel de urgencia para ordenar y resaltar productos.
type Level string

const (
	LevelCritical Level = "critical"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
	LevelNone     Level = "none"
)

// Puntajes por tramo.
const (
	ScoreCritical = 100
	ScoreHigh     = 75
	ScoreMedium   = 50
	ScoreLow      = 25
)

// QuantityScore tramo de la cantidad restante como porcentaje del último pedido:
// ≤25% → 100, ≤50% → 75, ≤75% → 50, resto → 25. Sin último pedido no hay puntaje.
func QuantityScore(left, lastOrder float64) int {
	if lastOrder <= 0 {
		return 0
	}
	pct := left * 100 / lastOrder
	switch {
	case pct <= 25:
		return ScoreCritical
	case pct <= 50:
		return ScoreHigh
	case pct <= 75:
		return ScoreMedium
	default:
		return ScoreLow
	}
}

// DaysScore tramo de los días desde el último pedido como porcentaje del intervalo
// medio entre pedidos: ≥100% → 100, ≥90% → 75, ≥75% → 50, resto → 25.
func DaysScore(days int, avgDaysBetween float64) int {
	if avgDaysBetween <= 0 {
		return 0
	}
	pct := float64(days) * 100 / avgDaysBetween
	switch {
	case pct >= 100:
		return ScoreCritical
	case pct >= 90:
		return ScoreHigh
	case pct >= 75:
		return ScoreMedium
	default:
		return ScoreLow
	}
}

// Scores puntajes individuales y combinado de una estimación.
type Scores struct {
	Quantity int
	Days     int
	Severity int
	Level    Level
}

// Score combina ambos puntajes tomando el peor (máximo).
func Score(e Estimate) Scores {
	s := Scores{
		Quantity: QuantityScore(e.EstimationQuantityLeft, e.QuantityLastOrder),
		Days:     DaysScore(e.DaysFromLastOrder, e.AverageDaysBetweenOrders),
	}
	s.Severity = max(s.Quantity, s.Days)
	s.Level = LevelOf(s.Severity)
	return s
}

// LevelOf traduce un puntaje a nivel.
func LevelOf(score int) Level {
	switch {
	case score >= ScoreCritical:
		return LevelCritical
	case score >= ScoreHigh:
		return LevelHigh
	case score >= ScoreMedium:
		return LevelMedium
	case score > 0:
		return LevelLow
	default:
		return LevelNone
	}
}
