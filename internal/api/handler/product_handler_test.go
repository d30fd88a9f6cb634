package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

type stubProductService struct {
	products map[string]*domain.Product
	lastIn   ports.ProductInput
	deleted  string
}

func (s *stubProductService) List(context.Context) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubProductService) Get(_ context.Context, id string) (*domain.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, domain.ErrProductNotFound
}

func (s *stubProductService) Create(_ context.Context, _ domain.Caller, in ports.ProductInput) (*domain.Product, error) {
	s.lastIn = in
	return &domain.Product{ID: testProductID, Name: in.Name, Price: in.Price}, nil
}

func (s *stubProductService) Update(_ context.Context, _ domain.Caller, id string, in ports.ProductInput) (*domain.Product, error) {
	s.lastIn = in
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *stubProductService) Delete(_ context.Context, _ domain.Caller, id string) error {
	s.deleted = id
	return nil
}

func TestProductHandler_Create(t *testing.T) {
	e := newTestEcho()
	svc := &stubProductService{}
	h := NewProductHandler(svc)

	c, rec := orderContext(e, jsonRequest(http.MethodPost, "/api/products", `{"name":"Pupusa revuelta","price":"1.5"}`), &adminCaller, "")
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !svc.lastIn.Price.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("price not bound: %s", svc.lastIn.Price)
	}

	var body productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Price != "1.50" {
		t.Fatalf("expected price 1.50, got %q", body.Price)
	}
}

func TestProductHandler_Create_Validation(t *testing.T) {
	e := newTestEcho()
	h := NewProductHandler(&stubProductService{})

	c, _ := orderContext(e, jsonRequest(http.MethodPost, "/api/products", `{"name":"X","image":"not a url"}`), &adminCaller, "")
	if err := h.Create(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProductHandler_Get(t *testing.T) {
	e := newTestEcho()
	h := NewProductHandler(&stubProductService{products: map[string]*domain.Product{
		testProductID: {ID: testProductID, Name: "Pupusa", Price: decimal.RequireFromString("1")},
	}})

	c, rec := orderContext(e, httptest.NewRequest(http.MethodGet, "/", nil), nil, testProductID)
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = orderContext(e, httptest.NewRequest(http.MethodGet, "/", nil), nil, "507f1f77bcf86cd799439099")
	if err := h.Get(c); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductHandler_Update_BadID(t *testing.T) {
	e := newTestEcho()
	h := NewProductHandler(&stubProductService{})

	c, _ := orderContext(e, jsonRequest(http.MethodPatch, "/", `{"name":"Nuevo"}`), &adminCaller, "abc")
	if err := h.Update(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProductHandler_Delete(t *testing.T) {
	e := newTestEcho()
	svc := &stubProductService{}
	h := NewProductHandler(svc)

	c, rec := orderContext(e, httptest.NewRequest(http.MethodDelete, "/", nil), &adminCaller, testProductID)
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || svc.deleted != testProductID {
		t.Fatalf("expected 204 and delete of %s, got %d / %q", testProductID, rec.Code, svc.deleted)
	}
}
