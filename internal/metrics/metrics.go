package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the site server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Guard decisions.
	AuthDecisionsTotal *prometheus.CounterVec

	// Form submissions and contact mail.
	SubmissionsTotal *prometheus.CounterVec
	ContactMailTotal *prometheus.CounterVec

	// Backend API calls.
	BackendCallsTotal   *prometheus.CounterVec
	BackendCallDuration *prometheus.HistogramVec
	BackendErrorsTotal  *prometheus.CounterVec

	// Rate limiting.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Lead archive collector.
	LeadFlushesTotal *prometheus.CounterVec
	LeadsTotal       *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbnakom_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"kind", "method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mbnakom_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "method", "path_pattern"}),

		AuthDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbnakom_auth_decisions_total",
			Help: "Page guard decisions by outcome.",
		}, []string{"decision"}),

		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbnakom_form_submissions_total",
			Help: "Form submissions by action and result.",
		}, []string{"action", "result"}),

		ContactMailTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbnakom_contact_mail_total",
			Help: "Contact enquiries by delivery result.",
		}, []string{"result"}),

		BackendCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbnakom_backend_calls_total",
			Help: "Backend API calls by endpoint and status code (0 for transport errors).",
		}, []string{"endpoint", "status_code"}),

		BackendCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mbnakom_backend_call_duration_seconds",
			Help:    "Backend API call duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		BackendErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbnakom_backend_errors_total",
			Help: "Backend API errors by error type.",
		}, []string{"error_type"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbnakom_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"limiter"}),

		LeadFlushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbnakom_lead_flushes_total",
			Help: "Lead archive flushes by status.",
		}, []string{"status"}),

		LeadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbnakom_leads_flushed_total",
			Help: "Leads written to, failed to reach or dropped from the archive.",
		}, []string{"status"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mbnakom_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthDecisionsTotal,
		m.SubmissionsTotal,
		m.ContactMailTotal,
		m.BackendCallsTotal,
		m.BackendCallDuration,
		m.BackendErrorsTotal,
		m.RateLimitRejectionsTotal,
		m.LeadFlushesTotal,
		m.LeadsTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// RegisterLeadBuffer exposes the number of leads waiting to be archived.
func (m *Metrics) RegisterLeadBuffer(pending func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "mbnakom_lead_buffer_size",
		Help: "Current number of buffered leads.",
	}, func() float64 { return float64(pending()) }))
}

// IncAuthDecision counts a page guard decision.
func (m *Metrics) IncAuthDecision(decision string) {
	m.AuthDecisionsTotal.WithLabelValues(decision).Inc()
}

// IncSubmission counts a form submission result.
func (m *Metrics) IncSubmission(action, result string) {
	m.SubmissionsTotal.WithLabelValues(action, result).Inc()
}

// IncContactMail counts a contact enquiry result.
func (m *Metrics) IncContactMail(result string) {
	m.ContactMailTotal.WithLabelValues(result).Inc()
}

// ObserveBackendCall records one backend API call.
func (m *Metrics) ObserveBackendCall(endpoint string, statusCode int, seconds float64) {
	m.BackendCallsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	m.BackendCallDuration.WithLabelValues(endpoint).Observe(seconds)
}

// IncBackendError counts a backend error by classification.
func (m *Metrics) IncBackendError(errorType string) {
	m.BackendErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncRateLimitRejection counts a throttled request.
func (m *Metrics) IncRateLimitRejection(limiter string) {
	m.RateLimitRejectionsTotal.WithLabelValues(limiter).Inc()
}

// IncLeadFlush counts a lead archive flush of count leads.
func (m *Metrics) IncLeadFlush(result string, count int) {
	m.LeadFlushesTotal.WithLabelValues(result).Inc()
	m.LeadsTotal.WithLabelValues(result).Add(float64(count))
}

// IncLeadsDropped counts leads given up on after the archive buffer filled.
func (m *Metrics) IncLeadsDropped(count int) {
	m.LeadsTotal.WithLabelValues("dropped").Add(float64(count))
}
