package printerapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/dashboard"
	"github.com/mmeshcher/labelprint/internal/model"
)

func TestClientSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/printer/user/admin-signin", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SignInResult{Token: "tok", Role: model.RoleAdmin})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	res, err := c.SignIn(context.Background(), "boss", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, model.RoleAdmin, res.Role)

	_, err = c.SignIn(context.Background(), "boss", "wrong")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, "invalid credentials", apperr.MessageOf(err))
}

func TestClientSendsBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(model.Profile{Name: "boss", Role: model.RoleAdmin})
	}))
	defer srv.Close()

	base := NewClient(srv.URL)
	p, err := base.WithToken("abc").AdminInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got)
	assert.Equal(t, "boss", p.Name)

	_, err = base.AdminInfo(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got, "WithToken must not mutate the original client")
}

func TestClientErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, apperr.ErrValidation},
		{http.StatusForbidden, apperr.ErrForbidden},
		{http.StatusNotFound, apperr.ErrNotFound},
		{http.StatusConflict, apperr.ErrConflict},
		{http.StatusInternalServerError, apperr.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewClient(srv.URL).DeleteOrder(context.Background(), 7)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClientNetworkErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).ListProductCodes(context.Background())
	require.ErrorIs(t, err, apperr.ErrTransport)
}

func TestClientListOrdersRevision(t *testing.T) {
	orders := []model.Order{{ID: 1, LotNumber: "L1"}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"r2"`)
		if r.Header.Get("If-None-Match") == `"r2"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		_ = json.NewEncoder(w).Encode(orders)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	got, rev, notModified, err := c.ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, notModified)
	assert.Equal(t, "r2", rev)
	assert.Equal(t, orders[0].LotNumber, got[0].LotNumber)

	got, rev, notModified, err = c.ListOrders(context.Background(), "r2")
	require.NoError(t, err)
	assert.True(t, notModified)
	assert.Equal(t, "r2", rev)
	assert.Nil(t, got)
}

func TestClientDashboardQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/printer/order/dashboard", r.URL.Path)
		assert.Equal(t, "today", r.URL.Query().Get("window"))
		assert.Equal(t, "lot-a", r.URL.Query().Get("q"))
		_ = json.NewEncoder(w).Encode(DashboardResult{Summary: dashboard.Summary{Total: 3}})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Dashboard(context.Background(), dashboard.WindowToday, "lot-a")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.Total)
}

func TestClientUpdateProductCodeEscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/fgcode/FG 01", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).UpdateProductCode(context.Background(), model.ProductCode{ID: "FG 01", Name: "n", Exp: "3 months"})
	require.NoError(t, err)
}

func TestNewClientAddsScheme(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", NewClient("localhost:8080/").baseURL)
	assert.Equal(t, "https://api.example", NewClient("https://api.example").baseURL)
}

func TestUnconfiguredClient(t *testing.T) {
	err := NewClient("").DeleteUser(context.Background(), 1)
	require.ErrorIs(t, err, apperr.ErrTransport)
}
