// Package printerapi предоставляет HTTP-клиент к API сервиса печати этикеток.
package printerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/dashboard"
	"github.com/mmeshcher/labelprint/internal/model"
)

const maxErrorBody = 4 << 10

// Client инкапсулирует HTTP-взаимодействие с сервисом. Повторов нет:
// неудачный запрос возвращает ошибку вызывающему.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создаёт клиент для указанного базового адреса.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithToken возвращает копию клиента, подписывающую запросы bearer-токеном.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// SignInResult содержит ответ на вход в систему.
type SignInResult struct {
	Token string     `json:"token"`
	Role  model.Role `json:"role"`
}

// ProfileInput описывает изменение собственного профиля; пустой пароль оставляет прежний.
type ProfileInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// UserInput описывает создание или изменение пользователя администратором.
type UserInput struct {
	ID       int64      `json:"id,omitempty"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password,omitempty"`
	Role     model.Role `json:"role"`
}

// DashboardResult содержит отфильтрованные заказы и сводку.
type DashboardResult struct {
	Orders  []model.Order     `json:"orders"`
	Summary dashboard.Summary `json:"summary"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, out any) (*http.Response, error) {
	if c == nil || c.baseURL == "" {
		return nil, apperr.New(apperr.KindTransport, "api client not configured")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return resp, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp, apperr.FromStatus(resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, apperr.Wrap(apperr.KindTransport, "decode response", err)
		}
	}

	return resp, nil
}

// SignIn выполняет вход по имени и паролю.
func (c *Client) SignIn(ctx context.Context, name, password string) (SignInResult, error) {
	var res SignInResult
	payload := map[string]string{"name": name, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/printer/user/admin-signin", payload, nil, &res); err != nil {
		return SignInResult{}, err
	}
	if res.Token == "" {
		return SignInResult{}, apperr.New(apperr.KindAuth, "empty token in sign-in response")
	}
	return res, nil
}

// AdminInfo возвращает профиль владельца токена.
func (c *Client) AdminInfo(ctx context.Context) (model.Profile, error) {
	var p model.Profile
	_, err := c.do(ctx, http.MethodGet, "/printer/user/admin-info", nil, nil, &p)
	return p, err
}

// EditProfile изменяет профиль владельца токена.
func (c *Client) EditProfile(ctx context.Context, in ProfileInput) error {
	_, err := c.do(ctx, http.MethodPost, "/printer/user/admin-edit-profile", in, nil, nil)
	return err
}

// ListUsers возвращает всех пользователей.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	_, err := c.do(ctx, http.MethodGet, "/printer/user", nil, nil, &users)
	return users, err
}

// CreateUser создаёт пользователя.
func (c *Client) CreateUser(ctx context.Context, in UserInput) error {
	_, err := c.do(ctx, http.MethodPost, "/printer/user/admin-create", in, nil, nil)
	return err
}

// UpdateUser изменяет пользователя.
func (c *Client) UpdateUser(ctx context.Context, in UserInput) error {
	_, err := c.do(ctx, http.MethodPost, "/printer/user/admin-update-profile", in, nil, nil)
	return err
}

// DeleteUser удаляет пользователя.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/printer/user/admin-delete/"+strconv.FormatInt(id, 10), nil, nil, nil)
	return err
}

// ListProductCodes возвращает справочник продукции.
func (c *Client) ListProductCodes(ctx context.Context) ([]model.ProductCode, error) {
	var codes []model.ProductCode
	_, err := c.do(ctx, http.MethodGet, "/fgcode", nil, nil, &codes)
	return codes, err
}

// CreateProductCode добавляет позицию справочника.
func (c *Client) CreateProductCode(ctx context.Context, p model.ProductCode) error {
	_, err := c.do(ctx, http.MethodPost, "/fgcode/create", p, nil, nil)
	return err
}

// UpdateProductCode изменяет название и срок годности позиции; код не меняется.
func (c *Client) UpdateProductCode(ctx context.Context, p model.ProductCode) error {
	payload := map[string]string{"name": p.Name, "exp": p.Exp}
	_, err := c.do(ctx, http.MethodPut, "/fgcode/"+url.PathEscape(p.ID), payload, nil, nil)
	return err
}

// DeleteProductCode удаляет позицию справочника.
func (c *Client) DeleteProductCode(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/fgcode/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// CreateOrder создаёт заказ; идентификатор назначает сервер.
func (c *Client) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	var created model.Order
	if _, err := c.do(ctx, http.MethodPost, "/printer/order/create", o, nil, &created); err != nil {
		return model.Order{}, err
	}
	return created, nil
}

// ListOrders запрашивает все заказы. Если revision совпадает с текущей ревизией
// коллекции на сервере, возвращается notModified=true без заказов.
func (c *Client) ListOrders(ctx context.Context, revision string) (orders []model.Order, newRevision string, notModified bool, err error) {
	header := http.Header{}
	if revision != "" {
		header.Set("If-None-Match", strconv.Quote(revision))
	}

	resp, err := c.do(ctx, http.MethodGet, "/printer/order", nil, header, &orders)
	if err != nil {
		return nil, "", false, err
	}

	newRevision = parseETag(resp.Header.Get("ETag"))
	if resp.StatusCode == http.StatusNotModified {
		if newRevision == "" {
			newRevision = revision
		}
		return nil, newRevision, true, nil
	}
	return orders, newRevision, false, nil
}

// UpdateOrder изменяет заказ.
func (c *Client) UpdateOrder(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error) {
	var updated model.Order
	if _, err := c.do(ctx, http.MethodPut, "/printer/order/"+strconv.FormatInt(id, 10), patch, nil, &updated); err != nil {
		return model.Order{}, err
	}
	return updated, nil
}

// DeleteOrder удаляет заказ.
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/printer/order/"+strconv.FormatInt(id, 10), nil, nil, nil)
	return err
}

// Dashboard запрашивает отфильтрованные заказы и сводку с сервера.
func (c *Client) Dashboard(ctx context.Context, w dashboard.Window, term string) (DashboardResult, error) {
	q := url.Values{}
	q.Set("window", string(w))
	if term != "" {
		q.Set("q", term)
	}

	var res DashboardResult
	_, err := c.do(ctx, http.MethodGet, "/printer/order/dashboard?"+q.Encode(), nil, nil, &res)
	return res, err
}

func parseETag(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "W/")
	if s, err := strconv.Unquote(v); err == nil {
		return s
	}
	return v
}

// IsAuthError сообщает, что сервер отверг токен или учётные данные.
func IsAuthError(err error) bool {
	return errors.Is(err, apperr.ErrAuth)
}
