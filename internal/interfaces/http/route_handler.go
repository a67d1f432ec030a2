package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/routing"
)

// RouteHandler planificación de rutas de entrega.
type RouteHandler struct {
	planner *routing.Planner
}

// NewRouteHandler construye el handler.
func NewRouteHandler(planner *routing.Planner) *RouteHandler {
	return &RouteHandler{planner: planner}
}

// owner dueño de las rutas guardadas: el vendor de la sesión o, sin vendor, el usuario.
func owner(c *fiber.Ctx) string {
	if v := GetVendorID(c); v != "" {
		return v
	}
	return GetUserID(c)
}

// Plan godoc
// @Summary      Calcular la ruta optimizada por las paradas
// @Description  Las peticiones de la misma sesión se agrupan: si llega otra durante la espera,
// @Description  esta responde 409 SUPERSEDED.
// @Tags         routes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PlanRouteRequest  true  "origin, stops, end, return_to_origin, save"
// @Success      200   {object}  entity.RoutePlan
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/routes/plan [post]
func (h *RouteHandler) Plan(c *fiber.Ctx) error {
	var in dto.PlanRouteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.planner.Plan(c.UserContext(), GetSessionID(c), owner(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// PlanSheet godoc
// @Summary      Calcular la ruta y devolver la hoja de ruta en PDF
// @Tags         routes
// @Security     Bearer
// @Accept       json
// @Produce      application/pdf
// @Param        body  body  dto.PlanRouteRequest  true  "origin, stops, end, return_to_origin"
// @Success      200
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/routes/sheet [post]
func (h *RouteHandler) PlanSheet(c *fiber.Ctx) error {
	var in dto.PlanRouteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	// Sin sesión: la hoja es una acción explícita y no pasa por el debounce.
	plan, err := h.planner.Plan(c.UserContext(), "", owner(c), in)
	if err != nil {
		return respondError(c, err)
	}
	pdf, err := h.planner.RenderSheet(plan)
	if err != nil {
		return respondError(c, err)
	}
	return sendPDF(c, "hoja-de-ruta.pdf", pdf)
}

// List godoc
// @Summary      Rutas guardadas
// @Tags         routes
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Máximo de rutas"  default(20)
// @Success      200  {object}  dto.RoutePlanListResponse
// @Router       /api/routes [get]
func (h *RouteHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	out, err := h.planner.List(c.UserContext(), owner(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.RoutePlanListResponse{Items: out})
}

// GetByID godoc
// @Summary      Ruta guardada
// @Tags         routes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la ruta"
// @Success      200  {object}  entity.RoutePlan
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/routes/{id} [get]
func (h *RouteHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.planner.Get(c.UserContext(), owner(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Sheet godoc
// @Summary      Hoja de ruta en PDF de una ruta guardada
// @Tags         routes
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la ruta"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/routes/{id}/sheet.pdf [get]
func (h *RouteHandler) Sheet(c *fiber.Ctx) error {
	id := c.Params("id")
	pdf, err := h.planner.Sheet(c.UserContext(), owner(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return sendPDF(c, "ruta-"+id+".pdf", pdf)
}

// Geocode godoc
// @Summary      Geocodificar direcciones
// @Description  Caché, proveedores y por último el centroide de la ciudad (approximate=true).
// @Tags         maps
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.GeocodeRequest  true  "addresses"
// @Success      200   {object}  dto.GeocodeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/maps/geocode [post]
func (h *RouteHandler) Geocode(c *fiber.Ctx) error {
	var in dto.GeocodeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.planner.Geocode(c.UserContext(), in.Addresses)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.GeocodeResponse{Items: out})
}

func sendPDF(c *fiber.Ctx, filename string, pdf []byte) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}
