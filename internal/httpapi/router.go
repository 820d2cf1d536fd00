package httpapi

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/w3bsuki/strike-cart-go/internal/middleware"
)

func NewRouter(h *Handler, logger *log.Logger, corsAllowOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(corsAllowOrigins))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logging(logger))

	r.Get("/health", h.Health)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/", h.CreateCart)
		r.Post("/items", h.AddItem)
		r.Post("/update", h.UpdateItem)
		r.Post("/bulk/add", h.BulkAdd)
		r.Post("/bulk/update", h.BulkUpdate)
		r.Post("/validate-inventory", h.ValidateInventory)
		r.Post("/share", h.CreateShare)
		r.Get("/share", h.ResolveShare)
	})

	return r
}
