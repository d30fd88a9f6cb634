package handler

import (
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

// --- Request → Service input ---

func toCreateOrderInput(req createOrderRequest, idempotencyKey string) ports.CreateOrderInput {
	items := make([]ports.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ports.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return ports.CreateOrderInput{
		Items:           items,
		DeliveryAddress: req.DeliveryAddress,
		Phone:           req.Phone,
		Notes:           req.Notes,
		IdempotencyKey:  idempotencyKey,
	}
}

func toListInput(q listOrdersQuery) ports.ListOrdersInput {
	return ports.ListOrdersInput{Status: q.Status, Page: q.Page, Limit: q.Limit}
}

// --- Service result → HTTP response ---

func toOrderResponse(o *domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal.StringFixed(2),
		})
	}

	links := orderLinks{Self: "/api/orders/" + o.ID}
	if o.Status.Cancellable() {
		links.Cancel = "/api/orders/" + o.ID + "/cancel"
	}

	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		Items:           items,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		Status:          string(o.Status),
		OrderDate:       o.OrderDate.UTC(),
		DeliveryAddress: o.DeliveryAddress,
		Phone:           o.Phone,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
		Links:           links,
	}
}

func toOrderListResponse(p *ports.OrderPage) orderListResponse {
	data := make([]orderResponse, 0, len(p.Items))
	for _, o := range p.Items {
		data = append(data, toOrderResponse(o))
	}
	return orderListResponse{
		Data: data,
		Pagination: paginationResponse{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      p.Total,
			TotalPages: p.TotalPages,
			HasNext:    p.HasNext,
			HasPrev:    p.HasPrev,
		},
	}
}

func toStatsResponse(s *domain.OrderStats) orderStatsResponse {
	stats := make([]statusStatResponse, 0, len(s.ByStatus))
	for _, st := range s.ByStatus {
		stats = append(stats, statusStatResponse{
			Status:      string(st.Status),
			Count:       st.Count,
			TotalAmount: st.TotalAmount.StringFixed(2),
		})
	}
	return orderStatsResponse{
		StatusStats:  stats,
		TotalOrders:  s.TotalOrders,
		TotalRevenue: s.TotalRevenue.StringFixed(2),
	}
}
