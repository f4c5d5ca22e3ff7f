// Package metrics exposes Prometheus collectors for dispatch and commit
// outcomes.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/boni/internal/engine"
	"github.com/roach88/boni/internal/model"
)

const namespace = "boni"

// Recorder implements engine.Recorder on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	messages         *prometheus.CounterVec // by step
	flowsStarted     *prometheus.CounterVec // by flow
	commits          *prometheus.CounterVec // by kind
	commitFailures   *prometheus.CounterVec // by kind
	dispatchDuration prometheus.Histogram
}

var _ engine.Recorder = (*Recorder)(nil)

// New creates a Recorder and registers its collectors together with the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Inbound messages dispatched, by the step the user was on",
		}, []string{"step"}),
		flowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "flows_started_total",
			Help:      "Flows started from the menu",
		}, []string{"flow"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commit",
			Name:      "entities_total",
			Help:      "Entities committed to storage",
		}, []string{"kind"}),
		commitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commit",
			Name:      "failures_total",
			Help:      "Commits that failed and left the session on its terminal step",
		}, []string{"kind"}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent dispatching one message, storage included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
	r.registry.MustRegister(
		r.messages,
		r.flowsStarted,
		r.commits,
		r.commitFailures,
		r.dispatchDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) MessageReceived(step model.StepID) {
	r.messages.WithLabelValues(step.String()).Inc()
}

func (r *Recorder) FlowStarted(flow string) { r.flowsStarted.WithLabelValues(flow).Inc() }

func (r *Recorder) EntityCommitted(kind model.EntityKind) {
	r.commits.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) CommitFailed(kind model.EntityKind) {
	r.commitFailures.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) ObserveDispatch(d time.Duration) { r.dispatchDuration.Observe(d.Seconds()) }

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
