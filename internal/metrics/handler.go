package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the metrics summary endpoint.
type Summary struct {
	Pages       httpSummary     `json:"pages"`
	API         httpSummary     `json:"api"`
	Auth        authInfo        `json:"auth"`
	Submissions submissionInfo  `json:"submissions"`
	Contact     contactInfo     `json:"contact"`
	Backend     backendSummary  `json:"backend"`
	RateLimit   rateLimitInfo   `json:"rateLimit"`
	Leads       leadInfo        `json:"leads"`
	DB          dbInfo          `json:"db"`
	Server      serverInfo      `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
	P99Latency    float64 `json:"p99Latency"`
}

type authInfo struct {
	Allowed    float64 `json:"allowed"`
	Redirected float64 `json:"redirected"`
}

type submissionInfo struct {
	Succeeded float64 `json:"succeeded"`
	Failed    float64 `json:"failed"`
	Invalid   float64 `json:"invalid"`
}

type contactInfo struct {
	Sent   float64 `json:"sent"`
	Failed float64 `json:"failed"`
}

type backendSummary struct {
	TotalCalls float64 `json:"totalCalls"`
	Errors     float64 `json:"errors"`
	P50Latency float64 `json:"p50Latency"`
	P95Latency float64 `json:"p95Latency"`
}

type rateLimitInfo struct {
	Rejections float64 `json:"rejections"`
}

type leadInfo struct {
	BufferSize   float64 `json:"bufferSize"`
	TotalFlushes float64 `json:"totalFlushes"`
	FlushErrors  float64 `json:"flushErrors"`
	Archived     float64 `json:"archived"`
	Dropped      float64 `json:"dropped"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

type dbInfo struct {
	TotalConns    float64 `json:"totalConns"`
	IdleConns     float64 `json:"idleConns"`
	AcquiredConns float64 `json:"acquiredConns"`
}

// Exposition serves the registry in the Prometheus text format.
func (m *Metrics) Exposition() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Handler returns an http.HandlerFunc that serves a JSON summary.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := m.Summarize()
		if err != nil {
			http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store")
		_ = json.NewEncoder(w).Encode(summary)
	}
}

// Summarize gathers the registry into a Summary.
func (m *Metrics) Summarize() (*Summary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	httpFor := func(kind string) httpSummary {
		byKind := labelled("kind", kind)
		durations := fam["mbnakom_http_request_duration_seconds"]
		return httpSummary{
			TotalRequests: counterSum(fam["mbnakom_http_requests_total"], byKind),
			ErrorRate:     errorRate(fam["mbnakom_http_requests_total"], byKind),
			P50Latency:    percentile(durations, 0.50, byKind),
			P95Latency:    percentile(durations, 0.95, byKind),
			P99Latency:    percentile(durations, 0.99, byKind),
		}
	}

	decisions := fam["mbnakom_auth_decisions_total"]
	allowed := counterSum(decisions, labelled("decision", "allow"))
	submissions := fam["mbnakom_form_submissions_total"]
	mails := fam["mbnakom_contact_mail_total"]
	start := gaugeValue(fam["mbnakom_server_start_time_seconds"])

	return &Summary{
		Pages: httpFor("page"),
		API:   httpFor("api"),
		Auth: authInfo{
			Allowed:    allowed,
			Redirected: counterSum(decisions, all) - allowed,
		},
		Submissions: submissionInfo{
			Succeeded: counterSum(submissions, labelled("result", "succeeded")),
			Failed:    counterSum(submissions, labelled("result", "failed")),
			Invalid:   counterSum(submissions, labelled("result", "invalid")),
		},
		Contact: contactInfo{
			Sent:   counterSum(mails, labelled("result", "sent")),
			Failed: counterSum(mails, labelled("result", "error")),
		},
		Backend: backendSummary{
			TotalCalls: counterSum(fam["mbnakom_backend_calls_total"], all),
			Errors:     counterSum(fam["mbnakom_backend_errors_total"], all),
			P50Latency: percentile(fam["mbnakom_backend_call_duration_seconds"], 0.50, all),
			P95Latency: percentile(fam["mbnakom_backend_call_duration_seconds"], 0.95, all),
		},
		RateLimit: rateLimitInfo{
			Rejections: counterSum(fam["mbnakom_ratelimit_rejections_total"], all),
		},
		Leads: leadInfo{
			BufferSize:   gaugeValue(fam["mbnakom_lead_buffer_size"]),
			TotalFlushes: counterSum(fam["mbnakom_lead_flushes_total"], all),
			FlushErrors:  counterSum(fam["mbnakom_lead_flushes_total"], labelled("status", "error")),
			Archived:     counterSum(fam["mbnakom_leads_flushed_total"], labelled("status", "ok")),
			Dropped:      counterSum(fam["mbnakom_leads_flushed_total"], labelled("status", "dropped")),
		},
		DB: dbInfo{
			TotalConns:    gaugeValue(fam["mbnakom_db_pool_total_conns"]),
			IdleConns:     gaugeValue(fam["mbnakom_db_pool_idle_conns"]),
			AcquiredConns: gaugeValue(fam["mbnakom_db_pool_acquired_conns"]),
		},
		Server: serverInfo{
			StartTime:     start,
			UptimeSeconds: float64(time.Now().Unix()) - start,
		},
	}, nil
}

// matcher selects the series of a family to aggregate.
type matcher func(*dto.Metric) bool

func all(*dto.Metric) bool { return true }

func labelled(name, value string) matcher {
	return func(m *dto.Metric) bool {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				return true
			}
		}
		return false
	}
}

// counterSum adds up the matching counter series. A missing family is 0.
func counterSum(f *dto.MetricFamily, match matcher) float64 {
	var total float64
	for _, m := range f.GetMetric() {
		if c := m.GetCounter(); c != nil && match(m) {
			total += c.GetValue()
		}
	}
	return total
}

func gaugeValue(f *dto.MetricFamily) float64 {
	if ms := f.GetMetric(); len(ms) > 0 {
		return ms[0].GetGauge().GetValue()
	}
	return 0
}

// errorRate is the share of matching requests answered with a 4xx or 5xx.
func errorRate(f *dto.MetricFamily, match matcher) float64 {
	total := counterSum(f, match)
	if total == 0 {
		return 0
	}
	failed := counterSum(f, func(m *dto.Metric) bool {
		if !match(m) {
			return false
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status_code" && lp.GetValue() >= "400" {
				return true
			}
		}
		return false
	})
	return failed / total
}

// percentile estimates quantile q of the matching histogram series by
// linear interpolation inside the bucket that holds the rank. Ranks past the
// last finite bound return that bound.
func percentile(f *dto.MetricFamily, q float64, match matcher) float64 {
	var samples uint64
	cumulative := make(map[float64]uint64)
	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil || !match(m) {
			continue
		}
		samples += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			if !math.IsInf(b.GetUpperBound(), 1) {
				cumulative[b.GetUpperBound()] += b.GetCumulativeCount()
			}
		}
	}
	if samples == 0 || len(cumulative) == 0 {
		return 0
	}

	bounds := make([]float64, 0, len(cumulative))
	for ub := range cumulative {
		bounds = append(bounds, ub)
	}
	sort.Float64s(bounds)

	rank := q * float64(samples)
	var lower float64
	var below uint64
	for _, ub := range bounds {
		count := cumulative[ub]
		if float64(count) >= rank {
			if count == below {
				return ub
			}
			return lower + (rank-float64(below))/float64(count-below)*(ub-lower)
		}
		lower, below = ub, count
	}
	return bounds[len(bounds)-1]
}
