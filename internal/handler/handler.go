// Package handler содержит HTTP-обработчики API сервера печати этикеток.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/dashboard"
	"github.com/mmeshcher/labelprint/internal/middleware"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	SignIn(ctx context.Context, name, password string) (string, model.Role, error)
	AdminInfo(ctx context.Context, userID int64) (model.Profile, error)
	EditProfile(ctx context.Context, userID int64, in service.ProfileInput) error

	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, in service.UserInput) (model.User, error)
	UpdateUser(ctx context.Context, in service.UserInput) error
	DeleteUser(ctx context.Context, actorID, id int64) error

	ListProductCodes(ctx context.Context) ([]model.ProductCode, error)
	CreateProductCode(ctx context.Context, p model.ProductCode) error
	UpdateProductCode(ctx context.Context, p model.ProductCode) error
	DeleteProductCode(ctx context.Context, id string) error

	CreateOrder(ctx context.Context, author string, o model.Order) (model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, string, error)
	OrderRevision(ctx context.Context) (string, error)
	UpdateOrder(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	Dashboard(ctx context.Context, w dashboard.Window, term string) (service.DashboardResult, error)
}

// Handler реализует HTTP-обработчики API сервера печати этикеток.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        *middleware.Metrics
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, metrics *middleware.Metrics) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		metrics:        metrics,
	}
}

// writeError отвечает статусом, соответствующим категории ошибки. Тело ответа
// содержит сообщение для пользователя; внутренние ошибки не раскрываются.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string, fields ...zap.Field) {
	code := apperr.StatusCode(err)
	if code >= http.StatusInternalServerError {
		fields = append(fields, zap.Error(err), zap.String("request_id", middleware.RequestIDFromContext(r.Context())))
		h.logger.Error(msg, fields...)
		http.Error(w, http.StatusText(code), code)
		return
	}
	http.Error(w, apperr.MessageOf(err), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "malformed request body", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("id must be a positive integer")
	}
	return id, nil
}

func identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return id, ok
}

type signInRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token string     `json:"token"`
	Role  model.Role `json:"role"`
}

// SignIn выполняет вход и выдаёт bearer-токен.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "sign in error")
		return
	}

	token, role, err := h.service.SignIn(r.Context(), req.Name, req.Password)
	if err != nil {
		h.writeError(w, r, err, "sign in error")
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{Token: token, Role: role})
}

// AdminInfo возвращает профиль владельца токена.
func (h *Handler) AdminInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	profile, err := h.service.AdminInfo(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, r, err, "admin info error", zap.Int64("userID", id.UserID))
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

type profileRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EditProfile изменяет профиль владельца токена.
func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "edit profile error")
		return
	}

	in := service.ProfileInput{Name: req.Name, Email: req.Email, Password: req.Password}
	if err := h.service.EditProfile(r.Context(), id.UserID, in); err != nil {
		h.writeError(w, r, err, "edit profile error", zap.Int64("userID", id.UserID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers возвращает всех пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err, "list users error")
		return
	}
	if users == nil {
		users = []model.User{}
	}

	writeJSON(w, http.StatusOK, users)
}

type userRequest struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

func (u userRequest) input() service.UserInput {
	return service.UserInput{ID: u.ID, Name: u.Name, Email: u.Email, Password: u.Password, Role: u.Role}
}

// CreateUser создаёт пользователя.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "create user error")
		return
	}

	u, err := h.service.CreateUser(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err, "create user error")
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// UpdateUser изменяет пользователя.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "update user error")
		return
	}

	if err := h.service.UpdateUser(r.Context(), req.input()); err != nil {
		h.writeError(w, r, err, "update user error", zap.Int64("userID", req.ID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser удаляет пользователя.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err, "delete user error")
		return
	}

	if err := h.service.DeleteUser(r.Context(), actor.UserID, id); err != nil {
		h.writeError(w, r, err, "delete user error", zap.Int64("userID", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListProductCodes возвращает справочник продукции.
func (h *Handler) ListProductCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.ListProductCodes(r.Context())
	if err != nil {
		h.writeError(w, r, err, "list fgcodes error")
		return
	}

	writeJSON(w, http.StatusOK, codes)
}

// CreateProductCode добавляет позицию справочника.
func (h *Handler) CreateProductCode(w http.ResponseWriter, r *http.Request) {
	var p model.ProductCode
	if err := decode(r, &p); err != nil {
		h.writeError(w, r, err, "create fgcode error")
		return
	}

	if err := h.service.CreateProductCode(r.Context(), p); err != nil {
		h.writeError(w, r, err, "create fgcode error", zap.String("fgcode", p.ID))
		return
	}

	w.WriteHeader(http.StatusCreated)
}

type productCodeUpdate struct {
	Name string `json:"name"`
	Exp  string `json:"exp"`
}

// UpdateProductCode изменяет название и срок годности позиции; код берётся из пути.
func (h *Handler) UpdateProductCode(w http.ResponseWriter, r *http.Request) {
	var req productCodeUpdate
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "update fgcode error")
		return
	}

	p := model.ProductCode{ID: chi.URLParam(r, "id"), Name: req.Name, Exp: req.Exp}
	if err := h.service.UpdateProductCode(r.Context(), p); err != nil {
		h.writeError(w, r, err, "update fgcode error", zap.String("fgcode", p.ID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteProductCode удаляет позицию справочника.
func (h *Handler) DeleteProductCode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteProductCode(r.Context(), id); err != nil {
		h.writeError(w, r, err, "delete fgcode error", zap.String("fgcode", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateOrder сохраняет заказ от имени владельца токена.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var o model.Order
	if err := decode(r, &o); err != nil {
		h.writeError(w, r, err, "create order error")
		return
	}

	created, err := h.service.CreateOrder(r.Context(), id.Name, o)
	if err != nil {
		h.writeError(w, r, err, "create order error", zap.String("lot", o.LotNumber))
		return
	}
	h.metrics.RecordOrderOperation("create")

	writeJSON(w, http.StatusCreated, created)
}

func etag(revision string) string {
	return strconv.Quote(revision)
}

// matchETag проверяет заголовок If-None-Match, включая списки и слабые теги.
func matchETag(header, revision string) bool {
	if header == "" {
		return false
	}
	want := etag(revision)
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		if tag == "*" || tag == want {
			return true
		}
	}
	return false
}

// ListOrders возвращает все заказы. Ревизия коллекции передаётся в ETag; при
// совпадении с If-None-Match ответ 304 без тела.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		rev, err := h.service.OrderRevision(r.Context())
		if err != nil {
			h.writeError(w, r, err, "order revision error")
			return
		}
		if matchETag(inm, rev) {
			w.Header().Set("ETag", etag(rev))
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	orders, rev, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err, "list orders error")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	w.Header().Set("ETag", etag(rev))
	writeJSON(w, http.StatusOK, orders)
}

// UpdateOrder изменяет заказ.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err, "update order error")
		return
	}

	var patch model.OrderPatch
	if err := decode(r, &patch); err != nil {
		h.writeError(w, r, err, "update order error")
		return
	}

	updated, err := h.service.UpdateOrder(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err, "update order error", zap.Int64("orderID", id))
		return
	}
	h.metrics.RecordOrderOperation("update")

	writeJSON(w, http.StatusOK, updated)
}

// DeleteOrder удаляет заказ.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err, "delete order error")
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, r, err, "delete order error", zap.Int64("orderID", id))
		return
	}
	h.metrics.RecordOrderOperation("delete")

	w.WriteHeader(http.StatusNoContent)
}

// Dashboard возвращает отфильтрованные заказы и сводку.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	window, err := dashboard.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		h.writeError(w, r, apperr.Wrap(apperr.KindValidation, "unknown window", err), "dashboard error")
		return
	}

	res, err := h.service.Dashboard(r.Context(), window, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err, "dashboard error")
		return
	}
	if res.Orders == nil {
		res.Orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, res)
}
