// Package chi provides the HTTP routing and validation boundary for the
// catalog service.
package chi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BigWednesdayIO/suppliers-api-sub000/catalog"
	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
)

// Server exposes the catalog operations over HTTP.
type Server struct {
	catalog *catalog.Service
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(c *catalog.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{catalog: c, logger: logger}
}

// keyFunc builds an entity key from request path parameters.
type keyFunc func(r *http.Request) (datastore.Key, error)

func supplierKey(r *http.Request) (datastore.Key, error) {
	return catalog.SupplierKey(chi.URLParam(r, "supplierID"))
}

func supplierDestination(*http.Request) (datastore.Key, error) {
	return catalog.SupplierKey("")
}

func depotKey(r *http.Request) (datastore.Key, error) {
	return catalog.DepotKey(chi.URLParam(r, "supplierID"), chi.URLParam(r, "depotID"))
}

func depotDestination(r *http.Request) (datastore.Key, error) {
	return catalog.DepotKey(chi.URLParam(r, "supplierID"), "")
}

func linkedProductKey(r *http.Request) (datastore.Key, error) {
	return catalog.LinkedProductKey(chi.URLParam(r, "supplierID"), chi.URLParam(r, "linkedProductID"))
}

func linkedProductDestination(r *http.Request) (datastore.Key, error) {
	return catalog.LinkedProductKey(chi.URLParam(r, "supplierID"), "")
}

func priceAdjustmentKey(r *http.Request) (datastore.Key, error) {
	return catalog.PriceAdjustmentKey(
		chi.URLParam(r, "supplierID"),
		chi.URLParam(r, "linkedProductID"),
		chi.URLParam(r, "priceAdjustmentID"),
	)
}

func priceAdjustmentDestination(r *http.Request) (datastore.Key, error) {
	return catalog.PriceAdjustmentKey(
		chi.URLParam(r, "supplierID"),
		chi.URLParam(r, "linkedProductID"),
		"",
	)
}

// Routes builds the router. Middleware is registered on the router itself so
// it observes the chi route context; anything inspecting the matched route
// pattern sees nothing when wrapped around the router from outside.
func (s *Server) Routes(middleware ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware...)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/suppliers", func(r chi.Router) {
		r.Post("/", s.create(supplierDestination))
		r.Get("/", s.listSuppliers)

		r.Route("/{supplierID}", func(r chi.Router) {
			r.Get("/", s.get(supplierKey))
			r.Put("/", s.upsert(supplierKey))
			r.Delete("/", s.delete(supplierKey))

			r.Route("/depots", func(r chi.Router) {
				r.Post("/", s.create(depotDestination))
				r.Get("/", s.list(catalog.KindDepot, supplierKey))
				r.Route("/{depotID}", func(r chi.Router) {
					r.Get("/", s.get(depotKey))
					r.Put("/", s.upsert(depotKey))
					r.Delete("/", s.delete(depotKey))
				})
			})

			r.Route("/linked_products", func(r chi.Router) {
				r.Post("/", s.create(linkedProductDestination))
				r.Get("/", s.list(catalog.KindLinkedProduct, supplierKey))
				r.Route("/{linkedProductID}", func(r chi.Router) {
					r.Get("/", s.get(linkedProductKey))
					r.Put("/", s.upsert(linkedProductKey))
					r.Delete("/", s.delete(linkedProductKey))

					r.Route("/price_adjustments", func(r chi.Router) {
						r.Post("/", s.create(priceAdjustmentDestination))
						r.Get("/", s.list(catalog.KindPriceAdjustment, linkedProductKey))
						r.Route("/{priceAdjustmentID}", func(r chi.Router) {
							r.Get("/", s.get(priceAdjustmentKey))
							r.Put("/", s.upsert(priceAdjustmentKey))
							r.Delete("/", s.delete(priceAdjustmentKey))
						})
					})
				})
			})
		})
	})

	r.Get("/price_adjustments", s.findActivePriceAdjustments)

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) create(dest keyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := dest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		attrs, ok := decodeBody(w, r)
		if !ok {
			return
		}

		entity, err := s.catalog.Create(r.Context(), key, attrs)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, entity)
	}
}

func (s *Server) get(kf keyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := kf(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		entity, err := s.catalog.Get(r.Context(), key)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, entity)
	}
}

func (s *Server) upsert(kf keyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := kf(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		attrs, ok := decodeBody(w, r)
		if !ok {
			return
		}

		entity, inserted, err := s.catalog.Upsert(r.Context(), key, attrs)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		status := http.StatusOK
		if inserted {
			status = http.StatusCreated
		}
		writeJSON(w, status, entity)
	}
}

func (s *Server) delete(kf keyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := kf(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := s.catalog.Delete(r.Context(), key); err != nil {
			s.writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) list(kind string, ancestor keyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := ancestor(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		offset, limit, err := pageParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		entities, err := s.catalog.Find(r.Context(), kind, key, offset, limit)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, entityList(entities))
	}
}

// listSuppliers dispatches GET /suppliers between the plain listing, the
// delivery-location search and the supplied-product search.
func (s *Server) listSuppliers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if productID := q.Get("supplies_product"); productID != "" {
		matches, err := s.catalog.FindSuppliersBySuppliedProduct(r.Context(), productID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if matches == nil {
			matches = []catalog.SupplierMatch{}
		}
		writeJSON(w, http.StatusOK, matches)
		return
	}

	loc := catalog.DeliveryLocation{
		Country:  q.Get("country"),
		Region:   q.Get("region"),
		County:   q.Get("county"),
		District: q.Get("district"),
		Place:    q.Get("place"),
	}
	if loc != (catalog.DeliveryLocation{}) {
		suppliers, err := s.catalog.FindSuppliersByDeliveryLocation(r.Context(), loc)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entityList(suppliers))
		return
	}

	offset, limit, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	suppliers, err := s.catalog.Find(r.Context(), catalog.KindSupplier, nil, offset, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entityList(suppliers))
}

// findActivePriceAdjustments handles the group matcher endpoint:
// GET /price_adjustments?price_adjustment_group_id=g&date=t&linked_product_id=a&linked_product_id=b
func (s *Server) findActivePriceAdjustments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	groupID := q.Get("price_adjustment_group_id")
	rawDate := q.Get("date")
	if rawDate == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	instant, err := time.Parse(time.RFC3339, rawDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be an RFC 3339 instant")
		return
	}

	adjustments, err := s.catalog.FindActivePriceAdjustments(
		r.Context(), groupID, instant, q["linked_product_id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entityList(adjustments))
}

// pageParams parses the offset and limit query parameters.
func pageParams(r *http.Request) (offset, limit int, err error) {
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, errBadPageParam("offset")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return 0, 0, errBadPageParam("limit")
		}
	}
	return offset, limit, nil
}

// decodeBody decodes a JSON object body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var attrs map[string]any
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return nil, false
	}
	return attrs, true
}

// entityList never serializes as null.
func entityList(entities []datastore.Entity) []datastore.Entity {
	if entities == nil {
		return []datastore.Entity{}
	}
	return entities
}
