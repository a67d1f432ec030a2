// Package pdf genera la hoja de ruta imprimible de una ruta planificada.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + id de ruta │  Fecha de planificación      │
//	│  RESUMEN: paradas / distancia total / duración total         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Cliente | Dirección | Distancia | Duración       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  INDICACIONES: pasos de cada tramo                           │
//	│  FOOTER: QR con la ruta en Google Maps                       │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"net/url"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	marotoentity "github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

var _ ports.RouteSheetRenderer = (*RouteSheetGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// maxStepsPerLeg evita hojas de varias páginas por tramos urbanos muy largos.
const maxStepsPerLeg = 12

// RouteSheetGenerator implementa ports.RouteSheetRenderer con Maroto v2.
type RouteSheetGenerator struct {
	fonts []*marotoentity.CustomFont
	err   error
}

// NewRouteSheetGenerator construye el generador con las fuentes embebidas.
func NewRouteSheetGenerator() *RouteSheetGenerator {
	fonts, err := loadFonts()
	return &RouteSheetGenerator{fonts: fonts, err: err}
}

// RenderRouteSheet genera el PDF y devuelve sus bytes.
func (g *RouteSheetGenerator) RenderRouteSheet(plan *entity.RoutePlan) ([]byte, error) {
	if plan == nil {
		return nil, fmt.Errorf("pdf: ruta vacía")
	}
	if g.err != nil {
		return nil, fmt.Errorf("pdf: cargar fuentes: %w", g.err)
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithCustomFonts(g.fonts).
		WithDefaultFont(&props.Font{Family: fontFamily, Size: 9}).
		WithTitle("Route sheet", true).
		WithAuthor("Scale Monitor", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(plan))
	m.AddRows(summaryRow(plan))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	m.AddRows(stopRows(plan)...)

	if steps := stepRows(plan); len(steps) > 0 {
		m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
		m.AddRows(steps...)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(plan))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(plan *entity.RoutePlan) core.Row {
	created := "—"
	if !plan.CreatedAt.IsZero() {
		created = plan.CreatedAt.Format("02/01/2006 15:04")
	}
	return row.New(16).Add(
		col.New(8).Add(
			text.New("ROUTE SHEET", props.Text{
				Style: fontstyle.Bold, Size: 14, Color: colorPrimary, Top: 1,
			}),
			text.New("Route: "+nonEmpty(plan.ID, "not saved"), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("Planned", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(created, props.Text{Size: 9, Align: align.Right, Top: 7}),
		),
	)
}

func summaryRow(plan *entity.RoutePlan) core.Row {
	ret := "no"
	if plan.ReturnToOrigin {
		ret = "yes"
	}
	return row.New(12).Add(
		col.New(12).Add(
			text.New("Origin: "+visual(stopLabel(plan.Origin)), props.Text{Size: 9, Top: 1}),
			text.New(fmt.Sprintf("Stops: %d   |   Distance: %s km   |   Duration: %s   |   Return to origin: %s",
				len(plan.OrderedStops),
				Kilometers(plan.TotalDistanceMeters),
				FormatDuration(plan.TotalDurationSeconds),
				ret,
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("Customer", 4, align.Left),
		h("Address", 4, align.Left),
		h("Distance", 1, align.Right),
		h("Drive", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// stopRows una fila por parada; la distancia y duración son las del tramo que llega a ella.
func stopRows(plan *entity.RoutePlan) []core.Row {
	rows := make([]core.Row, 0, len(plan.OrderedStops))
	for i, s := range plan.OrderedStops {
		dist, dur := "—", "—"
		if i < len(plan.Legs) {
			dist = Kilometers(plan.Legs[i].DistanceMeters) + " km"
			dur = FormatDuration(plan.Legs[i].EffectiveDuration())
		}
		addr := visual(nonEmpty(s.Address, "—"))
		if s.Approximate {
			addr += " (approx.)"
		}
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprint(i+1), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(4).Add(text.New(visual(nonEmpty(s.Name, s.ID)), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New(addr, props.Text{Size: 8, Top: 1, Left: 1, Color: colorGray})),
			col.New(1).Add(text.New(dist, props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(dur, props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	if plan.ReturnToOrigin && len(plan.Legs) > len(plan.OrderedStops) {
		last := plan.Legs[len(plan.Legs)-1]
		rows = append(rows, row.New(7).Add(
			col.New(1),
			col.New(8).Add(text.New("Return to origin", props.Text{Size: 8, Style: fontstyle.Italic, Top: 1, Left: 1})),
			col.New(1).Add(text.New(Kilometers(last.DistanceMeters)+" km", props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(FormatDuration(last.EffectiveDuration()), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func stepRows(plan *entity.RoutePlan) []core.Row {
	var rows []core.Row
	for i, leg := range plan.Legs {
		if len(leg.Steps) == 0 {
			continue
		}
		rows = append(rows, row.New(7).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Leg %d: %s > %s", i+1, visual(nonEmpty(leg.StartAddress, "—")), visual(nonEmpty(leg.EndAddress, "—"))), props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
			}),
		)))
		steps := leg.Steps
		if len(steps) > maxStepsPerLeg {
			steps = steps[:maxStepsPerLeg]
		}
		for _, s := range steps {
			rows = append(rows, row.New(5).Add(
				col.New(10).Add(text.New(visual(s.Instruction), props.Text{Size: 7, Top: 0.5, Left: 3})),
				col.New(2).Add(text.New(Kilometers(s.DistanceMeters)+" km", props.Text{Size: 7, Align: align.Right, Top: 0.5, Color: colorGray})),
			))
		}
		if hidden := len(leg.Steps) - len(steps); hidden > 0 {
			rows = append(rows, row.New(5).Add(col.New(12).Add(
				text.New(fmt.Sprintf("... %d more steps", hidden), props.Text{Size: 7, Top: 0.5, Left: 3, Color: colorGray}),
			)))
		}
	}
	return rows
}

func footerRow(plan *entity.RoutePlan) core.Row {
	link := DirectionsLink(plan)
	if link == "" {
		return row.New(8).Add(col.New(12).Add(
			text.New("Scale Monitor route sheet", props.Text{Size: 7, Color: colorGray, Top: 2, Align: align.Center}),
		))
	}
	return row.New(40).Add(
		col.New(4).Add(code.NewQr(link, props.Rect{Percent: 95, Center: true})),
		col.New(8).Add(
			text.New("Scan to open the route in Google Maps.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Drive times include the traffic estimate at planning time.", props.Text{
				Size: 7, Top: 12, Left: 3, Color: colorGray,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// DirectionsLink enlace de Google Maps con la ruta en el orden planificado.
func DirectionsLink(plan *entity.RoutePlan) string {
	if plan.Origin.Location == nil || len(plan.OrderedStops) == 0 {
		return ""
	}
	points := make([]string, 0, len(plan.OrderedStops))
	for _, s := range plan.OrderedStops {
		if s.Location != nil {
			points = append(points, s.Location.String())
		}
	}
	if len(points) == 0 {
		return ""
	}
	dest := points[len(points)-1]
	waypoints := points[:len(points)-1]
	if plan.ReturnToOrigin {
		dest = plan.Origin.Location.String()
		waypoints = points
	}
	q := url.Values{}
	q.Set("api", "1")
	q.Set("origin", plan.Origin.Location.String())
	q.Set("destination", dest)
	q.Set("travelmode", "driving")
	if len(waypoints) > 0 {
		q.Set("waypoints", strings.Join(waypoints, "|"))
	}
	return "https://www.google.com/maps/dir/?" + q.Encode()
}

// Kilometers metros a km con un decimal. Ej: 12345 → "12.3".
func Kilometers(meters int) string {
	return decimal.NewFromInt(int64(meters)).Div(decimal.NewFromInt(1000)).StringFixed(1)
}

// FormatDuration segundos a "1h 05m" o "12m".
func FormatDuration(seconds int) string {
	mins := (seconds + 30) / 60
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %02dm", mins/60, mins%60)
}

func stopLabel(s entity.Stop) string {
	switch {
	case s.Name != "" && s.Address != "":
		return s.Name + " - " + s.Address
	case s.Name != "":
		return s.Name
	case s.Address != "":
		return s.Address
	case s.Location != nil:
		return s.Location.String()
	}
	return "—"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
