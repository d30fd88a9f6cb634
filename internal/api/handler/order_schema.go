package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// --- Request types ---

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,mongodb"`
	Quantity  int    `json:"quantity"   validate:"required,gt=0"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"            validate:"required,min=1,dive"`
	DeliveryAddress string             `json:"delivery_address" validate:"omitempty,min=10,max=200"`
	Phone           string             `json:"phone"            validate:"omitempty,min=8,max=15"`
	Notes           string             `json:"notes"            validate:"omitempty,max=500"`
}

type idParam struct {
	ID string `param:"id" json:"-" validate:"required,mongodb"`
}

type updateStatusRequest struct {
	ID     string `param:"id"     json:"-"      validate:"required,mongodb"`
	Status string `json:"status"  validate:"required,oneof=pending confirmed preparing ready delivered cancelled"`
}

type listOrdersQuery struct {
	Page   int    `query:"page"   validate:"omitempty,gte=1,lte=100000"`
	Limit  int    `query:"limit"  validate:"omitempty,gte=1,lte=100"`
	Status string `query:"status" validate:"omitempty,oneof=pending confirmed preparing ready delivered cancelled"`
}

// --- Response types ---
// Money is rendered as fixed two-decimal strings so clients never see float rounding.

type orderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

type orderLinks struct {
	Self   string `json:"self"`
	Cancel string `json:"cancel,omitempty"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	CustomerName    string              `json:"customer_name,omitempty"`
	CustomerEmail   string              `json:"customer_email,omitempty"`
	Items           []orderItemResponse `json:"items"`
	TotalAmount     string              `json:"total_amount"`
	Status          string              `json:"status"`
	OrderDate       time.Time           `json:"order_date"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	Phone           string              `json:"phone,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Links           orderLinks          `json:"_links"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

type orderListResponse struct {
	Data       []orderResponse    `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

type modifiedResponse struct {
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modified_count"`
}

type statusStatResponse struct {
	Status      string `json:"status"`
	Count       int64  `json:"count"`
	TotalAmount string `json:"total_amount"`
}

type orderStatsResponse struct {
	StatusStats  []statusStatResponse `json:"status_stats"`
	TotalOrders  int64                `json:"total_orders"`
	TotalRevenue string               `json:"total_revenue"`
}
