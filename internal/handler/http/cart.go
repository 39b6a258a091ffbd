package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/domain"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/service"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/httputil"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/logger"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/middleware"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the catalog item posted by the storefront. qty and
// maxStock accept any JSON number; fractions are truncated and missing or
// non-positive values fall back to one unit and no ceiling.
type AddItemRequest struct {
	ID       string         `json:"id" validate:"required,max=200"`
	Size     domain.Variant `json:"size"`
	Name     string         `json:"name" validate:"max=500"`
	Image    string         `json:"image" validate:"max=2000"`
	Category string         `json:"category" validate:"max=200"`
	Price    float64        `json:"price" validate:"gte=0"`
	Qty      float64        `json:"qty"`
	MaxStock float64        `json:"maxStock"`
}

// SetQuantityRequest sets an absolute quantity. Zero or less removes the line.
type SetQuantityRequest struct {
	Size domain.Variant `json:"size"`
	Qty  float64        `json:"qty"`
}

// StepRequest moves a quantity up or down. A missing step means one.
type StepRequest struct {
	Size domain.Variant `json:"size"`
	Step float64        `json:"step"`
}

// AddItemResponse is returned by POST /api/v1/cart/items.
type AddItemResponse struct {
	Cart         domain.View `json:"cart"`
	Line         domain.Line `json:"line"`
	LimitReached bool        `json:"limitReached"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetCart(r.Context(), callerFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ClearCart(r.Context(), callerFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	res, err := h.service.AddItem(r.Context(), callerFromRequest(r), service.AddItemInput{
		ProductID:   req.ID,
		Variant:     req.Size,
		Name:        req.Name,
		Image:       req.Image,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    domain.NormalizeQuantity(req.Qty),
		MaxQuantity: domain.NormalizeQuantity(req.MaxStock),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, AddItemResponse{
		Cart:         res.Cart,
		Line:         res.Line,
		LimitReached: res.LimitReached,
	})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}. Without a size
// query parameter every variant of the product is removed; ?size= with an
// empty value targets the line that has no size.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var (
		view domain.View
		err  error
	)
	if q := r.URL.Query(); q.Has("size") {
		variant := domain.NoVariant
		if size := q.Get("size"); size != "" {
			variant = domain.VariantOf(size)
		}
		view, err = h.service.RemoveLine(r.Context(), callerFromRequest(r), productID, variant)
	} else {
		view, err = h.service.RemoveProduct(r.Context(), callerFromRequest(r), productID)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// SetQuantity handles PUT /api/v1/cart/items/{productId}/quantity
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetQuantityRequest
	if err := decodeOptional(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.SetQuantity(r.Context(), callerFromRequest(r),
		chi.URLParam(r, "productId"), req.Size, domain.NormalizeQuantity(req.Qty))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// IncreaseQuantity handles POST /api/v1/cart/items/{productId}/increase
func (h *CartHandler) IncreaseQuantity(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := decodeOptional(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.IncreaseQuantity(r.Context(), callerFromRequest(r),
		chi.URLParam(r, "productId"), req.Size, domain.NormalizeQuantity(req.Step))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// DecreaseQuantity handles POST /api/v1/cart/items/{productId}/decrease
func (h *CartHandler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := decodeOptional(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.DecreaseQuantity(r.Context(), callerFromRequest(r),
		chi.URLParam(r, "productId"), req.Size, domain.NormalizeQuantity(req.Step))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// EndSession handles DELETE /api/v1/session
func (h *CartHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.service.EndSession(r.Context(), logger.SessionIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// callerFromRequest reads what middleware.Session stored in the context.
func callerFromRequest(r *http.Request) service.Caller {
	ctx := r.Context()
	caller := service.Caller{SessionID: logger.SessionIDFromContext(ctx)}

	userID := logger.UserIDFromContext(ctx)
	email := middleware.EmailFromContext(ctx)
	if userID != "" || email != "" {
		caller.Identity = &domain.Identity{UserID: userID, Email: email}
	}
	return caller
}

// decodeOptional decodes and validates a JSON body, leaving dst at its zero
// value when the body is empty.
func decodeOptional(r *http.Request, dst any) error {
	err := validator.DecodeAndValidate(r, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
