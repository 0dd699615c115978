package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BigWednesdayIO/suppliers-api-sub000/catalog"
	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
)

var (
	storeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "suppliers_api",
			Name:      "store_operation_duration_seconds",
			Help:      "Entity store operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op", "outcome"},
	)

	storeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "suppliers_api",
			Name:      "store_operations_total",
			Help:      "Total number of entity store operations",
		},
		[]string{"op", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(storeOpDuration)
	prometheus.MustRegister(storeOpsTotal)
}

// InstrumentedStore wraps a catalog store, recording per-operation metrics.
type InstrumentedStore struct {
	next catalog.Store
}

var _ catalog.Store = (*InstrumentedStore)(nil)

// InstrumentStore wraps a store with metrics instrumentation.
func InstrumentStore(next catalog.Store) *InstrumentedStore {
	return &InstrumentedStore{next: next}
}

func observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOpDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	storeOpsTotal.WithLabelValues(op, outcome).Inc()
}

func (s *InstrumentedStore) Create(ctx context.Context, key datastore.Key, attrs map[string]any) (datastore.Entity, error) {
	start := time.Now()
	e, err := s.next.Create(ctx, key, attrs)
	observe("create", start, err)
	return e, err
}

func (s *InstrumentedStore) Get(ctx context.Context, key datastore.Key) (datastore.Entity, error) {
	start := time.Now()
	e, err := s.next.Get(ctx, key)
	observe("get", start, err)
	return e, err
}

func (s *InstrumentedStore) GetMulti(ctx context.Context, keys []datastore.Key) ([]datastore.Entity, error) {
	start := time.Now()
	es, err := s.next.GetMulti(ctx, keys)
	observe("get_multi", start, err)
	return es, err
}

func (s *InstrumentedStore) Upsert(ctx context.Context, key datastore.Key, attrs map[string]any) (datastore.Entity, bool, error) {
	start := time.Now()
	e, inserted, err := s.next.Upsert(ctx, key, attrs)
	observe("upsert", start, err)
	return e, inserted, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key datastore.Key) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	observe("delete", start, err)
	return err
}

func (s *InstrumentedStore) Find(ctx context.Context, q datastore.Query) ([]datastore.Entity, error) {
	start := time.Now()
	es, err := s.next.Find(ctx, q)
	observe("find", start, err)
	return es, err
}

func (s *InstrumentedStore) FindKeys(ctx context.Context, q datastore.Query) ([]datastore.Key, error) {
	start := time.Now()
	ks, err := s.next.FindKeys(ctx, q)
	observe("find_keys", start, err)
	return ks, err
}

func (s *InstrumentedStore) HasDescendants(ctx context.Context, key datastore.Key) (bool, error) {
	start := time.Now()
	has, err := s.next.HasDescendants(ctx, key)
	observe("has_descendants", start, err)
	return has, err
}
