package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

// ProductHandler serves the catalogue.
type ProductHandler struct {
	service ports.ProductService
}

func NewProductHandler(service ports.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

type createProductRequest struct {
	Name        string          `json:"name"        validate:"required,min=2,max=100"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"       validate:"omitempty,url"`
}

type updateProductRequest struct {
	ID          string          `param:"id"         json:"-"           validate:"required,mongodb"`
	Name        string          `json:"name"        validate:"omitempty,min=2,max=100"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"       validate:"omitempty,url"`
}

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductResponse(p *domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Image:       p.Image,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

// List handles GET /api/products.
//
// @Summary      List products
// @Tags         products
// @Produce      json
// @Success      200  {array}   productResponse
// @Router       /products [get]
func (h *ProductHandler) List(c echo.Context) error {
	products, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/products/:id.
//
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  productResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c echo.Context) error {
	var p idParam
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	product, err := h.service.Get(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProductResponse(product))
}

// Create handles POST /api/products (admin).
//
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createProductRequest  true  "Product"
// @Success      201   {object}  productResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /products [post]
func (h *ProductHandler) Create(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req createProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	product, err := h.service.Create(c.Request().Context(), caller, ports.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toProductResponse(product))
}

// Update handles PATCH /api/products/:id (admin). Omitted fields are kept.
//
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Product id"
// @Param        body  body      updateProductRequest  true  "Fields to change"
// @Success      200   {object}  productResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /products/{id} [patch]
func (h *ProductHandler) Update(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req updateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	product, err := h.service.Update(c.Request().Context(), caller, req.ID, ports.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProductResponse(product))
}

// Delete handles DELETE /api/products/:id (admin).
//
// @Summary      Delete a product
// @Tags         products
// @Security     BearerAuth
// @Param        id   path  string  true  "Product id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var p idParam
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), caller, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
