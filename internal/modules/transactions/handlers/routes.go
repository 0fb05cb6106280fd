package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers transaction routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/export.csv", h.HandleExport)
		r.Post("/import", h.HandleImport)
		r.Post("/recognize", h.HandleRecognize)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
			r.Get("/children", h.HandleChildren)
			r.Post("/split", h.HandleSplit)
			r.Delete("/split", h.HandleUnsplit)
		})
	})
}
