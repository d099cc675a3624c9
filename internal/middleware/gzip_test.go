package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/labelprint/internal/model"
)

// orderEchoHandler возвращает заказ из тела запроса; пустое тело даёт 304 для GET и 204 для DELETE.
func orderEchoHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("ETag", `"7"`)
		w.WriteHeader(http.StatusNotModified)
		return
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var o model.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		http.Error(w, "malformed order", http.StatusBadRequest)
		return
	}
	o.ID = 42
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(o)
}

func gzipBytes(t *testing.T, s string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	const order = `{"lotNumber":"L-17","productId":"FG-001","quantity":3}`

	tests := []struct {
		name            string
		method          string
		body            io.Reader
		headers         map[string]string
		wantStatus      int
		wantEncoding    string
		wantBodyContain string
	}{
		{
			name:            "compressed request and response",
			method:          http.MethodPost,
			body:            gzipBytes(t, order),
			headers:         map[string]string{"Content-Encoding": "gzip", "Accept-Encoding": "gzip"},
			wantStatus:      http.StatusCreated,
			wantEncoding:    "gzip",
			wantBodyContain: `"lotNumber":"L-17"`,
		},
		{
			name:            "compressed request, plain response",
			method:          http.MethodPost,
			body:            gzipBytes(t, order),
			headers:         map[string]string{"Content-Encoding": "gzip"},
			wantStatus:      http.StatusCreated,
			wantBodyContain: `"id":42`,
		},
		{
			name:            "plain request, compressed response",
			method:          http.MethodPost,
			body:            strings.NewReader(order),
			headers:         map[string]string{"Accept-Encoding": "gzip, deflate"},
			wantStatus:      http.StatusCreated,
			wantEncoding:    "gzip",
			wantBodyContain: `"productId":"FG-001"`,
		},
		{
			name:       "not modified is never compressed",
			method:     http.MethodGet,
			headers:    map[string]string{"Accept-Encoding": "gzip"},
			wantStatus: http.StatusNotModified,
		},
		{
			name:       "no content is never compressed",
			method:     http.MethodDelete,
			headers:    map[string]string{"Accept-Encoding": "gzip"},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "broken gzip stream",
			method:     http.MethodPost,
			body:       strings.NewReader("not gzip at all"),
			headers:    map[string]string{"Content-Encoding": "gzip"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/printer/order", tt.body)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			GzipMiddleware(http.HandlerFunc(orderEchoHandler)).ServeHTTP(rec, req)

			res := rec.Result()
			defer res.Body.Close()

			require.Equal(t, tt.wantStatus, res.StatusCode)
			assert.Equal(t, tt.wantEncoding, res.Header.Get("Content-Encoding"))

			reader := io.Reader(res.Body)
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				require.NoError(t, err)
				defer gr.Close()
				reader = gr
			}
			body, err := io.ReadAll(reader)
			require.NoError(t, err)

			if tt.wantBodyContain != "" {
				assert.Contains(t, string(body), tt.wantBodyContain)
			}
			if tt.wantStatus == http.StatusNotModified || tt.wantStatus == http.StatusNoContent {
				assert.Empty(t, body)
			}
		})
	}
}
