// Package metrics keeps in-process request and domain counters and exposes
// them in the Prometheus text format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const namespace = "contactkeeper"

// Domain counter names.
const (
	UsersRegistered  = "users_registered"
	LoginsSucceeded  = "logins_succeeded"
	LoginsFailed     = "logins_failed"
	TokensRejected   = "tokens_rejected"
	ContactsCreated  = "contacts_created"
	ContactsUpdated  = "contacts_updated"
	ContactsDeleted  = "contacts_deleted"
	ContactsExported = "contacts_exported"
	OwnershipDenied  = "ownership_denied"
	CacheHits        = "cache_hits"
	CacheMisses      = "cache_misses"
	GitHubRequests   = "github_requests"
	GitHubFailures   = "github_failures"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	requestCount    map[string]*uint64    // endpoint:method -> count
	requestDuration map[string]*Histogram // endpoint:method -> duration histogram
	requestErrors   map[string]*uint64    // endpoint:method:status_class -> count
	counters        map[string]*uint64

	startTime time.Time
}

// Histogram tracks value distributions
type Histogram struct {
	mu         sync.Mutex
	count      uint64
	sum        float64
	buckets    []float64
	bucketVals []uint64
}

// NewHistogram creates a histogram with latency buckets from 5ms to 10s.
func NewHistogram() *Histogram {
	buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	return &Histogram{
		buckets:    buckets,
		bucketVals: make([]uint64, len(buckets)),
	}
}

// Observe records a value
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, b := range h.buckets {
		if v <= b {
			h.bucketVals[i]++
		}
	}
}

// New creates a new Metrics instance
func New() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]*uint64),
		requestDuration: make(map[string]*Histogram),
		requestErrors:   make(map[string]*uint64),
		counters:        make(map[string]*uint64),
		startTime:       time.Now(),
	}
}

// RecordRequest records a request
func (m *Metrics) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	key := normalizeEndpoint(path) + ":" + method

	m.mu.Lock()
	if m.requestCount[key] == nil {
		m.requestCount[key] = new(uint64)
		m.requestDuration[key] = NewHistogram()
	}
	count, hist := m.requestCount[key], m.requestDuration[key]

	var errCount *uint64
	if statusCode >= 400 {
		errorKey := fmt.Sprintf("%s:%d", key, statusCode/100)
		if m.requestErrors[errorKey] == nil {
			m.requestErrors[errorKey] = new(uint64)
		}
		errCount = m.requestErrors[errorKey]
	}
	m.mu.Unlock()

	atomic.AddUint64(count, 1)
	hist.Observe(duration.Seconds())
	if errCount != nil {
		atomic.AddUint64(errCount, 1)
	}
}

// IncCounter increments a counter. A nil Metrics discards the increment.
func (m *Metrics) IncCounter(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	c := m.counters[name]
	if c == nil {
		c = new(uint64)
		m.counters[name] = c
	}
	m.mu.Unlock()
	atomic.AddUint64(c, 1)
}

// Counter returns the current value of a named counter.
func (m *Metrics) Counter(name string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c := m.counters[name]; c != nil {
		return atomic.LoadUint64(c)
	}
	return 0
}

// normalizeEndpoint replaces UUID path segments so contact IDs do not
// explode label cardinality.
func normalizeEndpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if len(part) == 36 && strings.Count(part, "-") == 4 {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder

		fmt.Fprintf(&sb, "# HELP %s_uptime_seconds Time since the server started\n", namespace)
		fmt.Fprintf(&sb, "# TYPE %s_uptime_seconds gauge\n", namespace)
		fmt.Fprintf(&sb, "%s_uptime_seconds %f\n\n", namespace, time.Since(m.startTime).Seconds())

		m.mu.RLock()
		defer m.mu.RUnlock()

		if len(m.requestCount) > 0 {
			fmt.Fprintf(&sb, "# HELP %s_http_requests_total Total HTTP requests\n", namespace)
			fmt.Fprintf(&sb, "# TYPE %s_http_requests_total counter\n", namespace)
			for _, key := range sortedKeys(m.requestCount) {
				endpoint, method, _ := strings.Cut(key, ":")
				fmt.Fprintf(&sb, "%s_http_requests_total{endpoint=%q,method=%q} %d\n",
					namespace, endpoint, method, atomic.LoadUint64(m.requestCount[key]))
			}
			sb.WriteString("\n")

			fmt.Fprintf(&sb, "# HELP %s_http_request_duration_seconds HTTP request latency\n", namespace)
			fmt.Fprintf(&sb, "# TYPE %s_http_request_duration_seconds histogram\n", namespace)
			for _, key := range sortedKeys(m.requestDuration) {
				endpoint, method, _ := strings.Cut(key, ":")
				h := m.requestDuration[key]
				h.mu.Lock()
				for i, bucket := range h.buckets {
					fmt.Fprintf(&sb, "%s_http_request_duration_seconds_bucket{endpoint=%q,method=%q,le=\"%g\"} %d\n",
						namespace, endpoint, method, bucket, h.bucketVals[i])
				}
				fmt.Fprintf(&sb, "%s_http_request_duration_seconds_bucket{endpoint=%q,method=%q,le=\"+Inf\"} %d\n", namespace, endpoint, method, h.count)
				fmt.Fprintf(&sb, "%s_http_request_duration_seconds_sum{endpoint=%q,method=%q} %f\n", namespace, endpoint, method, h.sum)
				fmt.Fprintf(&sb, "%s_http_request_duration_seconds_count{endpoint=%q,method=%q} %d\n", namespace, endpoint, method, h.count)
				h.mu.Unlock()
			}
			sb.WriteString("\n")
		}

		if len(m.requestErrors) > 0 {
			fmt.Fprintf(&sb, "# HELP %s_http_errors_total Total HTTP errors by status class\n", namespace)
			fmt.Fprintf(&sb, "# TYPE %s_http_errors_total counter\n", namespace)
			for _, key := range sortedKeys(m.requestErrors) {
				// endpoint:method:class
				parts := strings.Split(key, ":")
				if len(parts) != 3 {
					continue
				}
				fmt.Fprintf(&sb, "%s_http_errors_total{endpoint=%q,method=%q,status_class=\"%sxx\"} %d\n",
					namespace, parts[0], parts[1], parts[2], atomic.LoadUint64(m.requestErrors[key]))
			}
			sb.WriteString("\n")
		}

		for _, name := range sortedKeys(m.counters) {
			fmt.Fprintf(&sb, "# TYPE %s_%s_total counter\n", namespace, name)
			fmt.Fprintf(&sb, "%s_%s_total %d\n", namespace, name, atomic.LoadUint64(m.counters[name]))
		}

		w.Write([]byte(sb.String()))
	}
}

// Middleware records request metrics
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			m.RecordRequest(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
		})
	}
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
