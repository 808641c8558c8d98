// Package metrics exports the service's Prometheus metrics.
//
// The Recorder satisfies siteconfig.Recorder and is handed to the store; the
// API layer uses the login and upload counters directly. Handler serves the
// registry on /metrics.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shodaiev"

// Outcome labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder records store, login, and upload metrics into its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	reg *prom.Registry

	storeDuration *prom.HistogramVec
	storeResults  *prom.CounterVec
	seeds         prom.Counter
	saves         *prom.CounterVec
	logins        *prom.CounterVec
	uploads       *prom.CounterVec
	uploadBytes   prom.Counter
}

// New builds a Recorder with Go and process collectors registered.
func New() *Recorder {
	r := &Recorder{reg: prom.NewRegistry()}

	r.storeDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Duration of site config backend operations",
		Buckets:   prom.DefBuckets,
	}, []string{"operation"})
	r.storeResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "store_operations_total",
		Help:      "Site config backend operations by outcome",
	}, []string{"operation", "result"})
	r.seeds = prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "store_seeds_total",
		Help:      "Times the default document was written to an empty backend",
	})
	r.saves = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "admin_saves_total",
		Help:      "Admin section saves by section and outcome",
	}, []string{"section", "result"})
	r.logins = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "admin_logins_total",
		Help:      "Admin login attempts by outcome",
	}, []string{"result"})
	r.uploads = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Uploaded files by outcome",
	}, []string{"result"})
	r.uploadBytes = prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "upload_bytes_total",
		Help:      "Bytes written by successful uploads",
	})

	r.reg.MustRegister(r.storeDuration, r.storeResults, r.seeds, r.saves, r.logins, r.uploads, r.uploadBytes)
	r.reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveOperation implements siteconfig.Recorder.
func (r *Recorder) ObserveOperation(op string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.storeDuration.WithLabelValues(op).Observe(d.Seconds())
	r.storeResults.WithLabelValues(op, result(err == nil)).Inc()
}

// IncSeed implements siteconfig.Recorder.
func (r *Recorder) IncSeed() {
	if r == nil {
		return
	}
	r.seeds.Inc()
}

// ObserveSave counts one admin write of section.
func (r *Recorder) ObserveSave(section string, success bool) {
	if r == nil {
		return
	}
	r.saves.WithLabelValues(section, result(success)).Inc()
}

// IncLogin counts one login attempt.
func (r *Recorder) IncLogin(success bool) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(result(success)).Inc()
}

// ObserveUpload counts one uploaded file; size is only added on success.
func (r *Recorder) ObserveUpload(size int64, success bool) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(result(success)).Inc()
	if success && size > 0 {
		r.uploadBytes.Add(float64(size))
	}
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}
