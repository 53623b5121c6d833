package handler

import (
	"encoding/json"
	"net/http"

	"github.com/RoyceAzure/lab/assia/internal/api/dto"
	"github.com/RoyceAzure/lab/assia/internal/api/response"
	"github.com/RoyceAzure/lab/assia/internal/checkout"
	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/service"
	"github.com/go-chi/chi/v5"
)

const CartIdentityParam = "identity"

// StorefrontHandler 購物車與結帳
type StorefrontHandler struct {
	cartService     service.ICartService
	checkoutService service.ICheckoutService
}

func NewStorefrontHandler(cartService service.ICartService, checkoutService service.ICheckoutService) *StorefrontHandler {
	if cartService == nil {
		panic("cartService cannot be nil")
	}
	if checkoutService == nil {
		panic("checkoutService cannot be nil")
	}
	return &StorefrontHandler{
		cartService:     cartService,
		checkoutService: checkoutService,
	}
}

func (h *StorefrontHandler) Cart(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cartService.Summary(chi.URLParam(r, SessionIDParam))
	if err != nil {
		writeError(w, err)
		return
	}
	response.SuccessJSON(w, summary)
}

// AddCartItem 同名商品合併數量
func (h *StorefrontHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req dto.AddCartItemDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequestBody)
		return
	}

	sid := chi.URLParam(r, SessionIDParam)
	line, err := h.cartService.Add(sid, req.ToProductCard())
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.cartService.Summary(sid)
	if err != nil {
		writeError(w, err)
		return
	}
	response.SuccessJSON(w, dto.AddCartItemResponse{Line: line, Cart: summary})
}

func (h *StorefrontHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, SessionIDParam)
	removed, err := h.cartService.Remove(sid, chi.URLParam(r, CartIdentityParam))
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.cartService.Summary(sid)
	if err != nil {
		writeError(w, err)
		return
	}
	response.SuccessJSON(w, dto.RemoveCartItemResponse{Removed: removed, Cart: summary})
}

func (h *StorefrontHandler) CheckoutState(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, h.checkoutService.State)
}

func (h *StorefrontHandler) OpenCheckout(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, h.checkoutService.Open)
}

func (h *StorefrontHandler) CloseCheckout(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, h.checkoutService.Close)
}

func (h *StorefrontHandler) BackCheckout(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, h.checkoutService.Back)
}

func (h *StorefrontHandler) AdvanceCheckout(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, h.checkoutService.Advance)
}

func (h *StorefrontHandler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	var req model.CustomerInfo
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequestBody)
		return
	}
	h.respondState(w, r, func(sid string) (checkout.State, error) {
		return h.checkoutService.SetDelivery(sid, req)
	})
}

// SetPaymentField 回傳的狀態中卡號已遮蔽
func (h *StorefrontHandler) SetPaymentField(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentFieldDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequestBody)
		return
	}
	h.respondState(w, r, func(sid string) (checkout.State, error) {
		return h.checkoutService.SetPaymentField(sid, req.Field, req.Value)
	})
}

func (h *StorefrontHandler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	result, err := h.checkoutService.Submit(r.Context(), chi.URLParam(r, SessionIDParam))
	if err != nil {
		var state checkout.State
		if result != nil {
			state = result.State
		}
		writeCheckoutError(w, err, state)
		return
	}
	response.SuccessJSON(w, result)
}

func (h *StorefrontHandler) respondState(w http.ResponseWriter, r *http.Request, fn func(sid string) (checkout.State, error)) {
	state, err := fn(chi.URLParam(r, SessionIDParam))
	if err != nil {
		writeCheckoutError(w, err, state)
		return
	}
	response.SuccessJSON(w, state)
}
