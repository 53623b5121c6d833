package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RoyceAzure/lab/assia/internal/api/dto"
	"github.com/RoyceAzure/lab/assia/internal/api/response"
	"github.com/RoyceAzure/lab/assia/internal/constants"
	"github.com/RoyceAzure/lab/assia/internal/service"
	"github.com/go-chi/chi/v5"
)

const OrderIDParam = "id"

var (
	errOrderNotFound = errors.New("order not found")
	errEmptyUpdate   = errors.New("customer or status is required")
)

type AdminHandler struct {
	adminService service.IAdminService
	orderService service.IOrderService
}

func NewAdminHandler(adminService service.IAdminService, orderService service.IOrderService) *AdminHandler {
	if adminService == nil {
		panic("adminService cannot be nil")
	}
	if orderService == nil {
		panic("orderService cannot be nil")
	}
	return &AdminHandler{
		adminService: adminService,
		orderService: orderService,
	}
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminLoginDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequestBody)
		return
	}

	token, err := h.adminService.Login(req.Passphrase)
	if err != nil {
		writeError(w, err)
		return
	}
	response.SuccessJSON(w, dto.AdminLoginResponse{Token: token})
}

// Logout token 由 AdminAuthMiddleware 放入 ctx
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := r.Context().Value(constants.AdminTokenKey).(string); ok {
		h.adminService.Logout(token)
	}
	response.SuccessJSON(w, nil)
}

// Orders 新的在前
func (h *AdminHandler) Orders(w http.ResponseWriter, r *http.Request) {
	orders := h.orderService.ListNewestFirst()
	response.SuccessJSON(w, dto.OrdersResponse{Orders: orders, Count: len(orders)})
}

func (h *AdminHandler) Order(w http.ResponseWriter, r *http.Request) {
	order, result := h.orderService.Get(chi.URLParam(r, OrderIDParam))
	if result == service.NotFound {
		response.ErrorJSON(w, http.StatusNotFound, errOrderNotFound, "")
		return
	}
	response.SuccessJSON(w, order)
}

/*
UpdateOrder
  - 只有 status: 只改狀態
  - 有 customer: 覆寫客戶資料，status 有值時一併更新
*/
func (h *AdminHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateOrderDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequestBody)
		return
	}
	if req.Customer == nil && req.Status == nil {
		response.ErrorJSON(w, http.StatusBadRequest, errEmptyUpdate, "")
		return
	}

	id := chi.URLParam(r, OrderIDParam)
	var (
		result service.Result
		err    error
	)
	if req.Customer == nil {
		result, err = h.orderService.UpdateStatus(r.Context(), id, *req.Status)
	} else {
		result, err = h.orderService.UpdateCustomer(r.Context(), id, *req.Customer, req.Status)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if result == service.NotFound {
		response.ErrorJSON(w, http.StatusNotFound, errOrderNotFound, "")
		return
	}

	order, _ := h.orderService.Get(id)
	response.SuccessJSON(w, order)
}

func (h *AdminHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.orderService.Delete(r.Context(), chi.URLParam(r, OrderIDParam))
	if err != nil {
		writeError(w, err)
		return
	}
	if result == service.NotFound {
		response.ErrorJSON(w, http.StatusNotFound, errOrderNotFound, "")
		return
	}
	response.SuccessJSON(w, nil)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response.SuccessJSON(w, h.orderService.Stats())
}
