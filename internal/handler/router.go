package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/labelprint/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервера печати этикеток.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(custommiddleware.Logger(h.logger))
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", custommiddleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(custommiddleware.GzipMiddleware)

	auth := h.authMiddleware.Authenticate(h.service)
	admin := custommiddleware.RequireAdmin

	r.Route("/printer/user", func(r chi.Router) {
		r.Post("/admin-signin", h.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Get("/admin-info", h.AdminInfo)
			r.Post("/admin-edit-profile", h.EditProfile)

			r.Group(func(r chi.Router) {
				r.Use(admin)

				r.Get("/", h.ListUsers)
				r.Post("/admin-create", h.CreateUser)
				r.Post("/admin-update-profile", h.UpdateUser)
				r.Delete("/admin-delete/{id}", h.DeleteUser)
			})
		})
	})

	r.Route("/fgcode", func(r chi.Router) {
		r.Get("/", h.ListProductCodes)

		r.Group(func(r chi.Router) {
			r.Use(auth, admin)

			r.Post("/create", h.CreateProductCode)
			r.Put("/{id}", h.UpdateProductCode)
			r.Delete("/{id}", h.DeleteProductCode)
		})
	})

	r.Route("/printer/order", func(r chi.Router) {
		r.Use(auth)

		r.Get("/", h.ListOrders)
		r.Post("/create", h.CreateOrder)
		r.Get("/dashboard", h.Dashboard)

		r.Group(func(r chi.Router) {
			r.Use(admin)

			r.Put("/{id}", h.UpdateOrder)
			r.Delete("/{id}", h.DeleteOrder)
		})
	})

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
