package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fluxviewer/internal/listener"
	"fluxviewer/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fluxviewer"

// Metrics holds the listener collectors, all labelled by protocol.
type Metrics struct {
	commands     *prometheus.CounterVec
	bound        *prometheus.GaugeVec
	frames       *prometheus.CounterVec
	decodeErrors *prometheus.CounterVec
	readErrors   *prometheus.CounterVec
	emitted      *prometheus.CounterVec
	dropped      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      name,
			Help:      help,
		}, append([]string{"protocol"}, labels...))
	}

	m := &Metrics{
		commands:     counter("commands_total", "Commands applied by the listener loop.", "op"),
		frames:       counter("frames_received_total", "Frames read from the transport."),
		decodeErrors: counter("decode_errors_total", "Frames dropped because they could not be decoded."),
		readErrors:   counter("read_errors_total", "Transport reads that failed for a reason other than timeout."),
		emitted:      counter("records_emitted_total", "Records pushed to the event buffer."),
		dropped:      counter("records_dropped_total", "Records overwritten before the consumer read them."),
		bound: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "bound",
			Help:      "1 while the listener holds an open transport.",
		}, []string{"protocol"}),
	}
	reg.MustRegister(m.commands, m.bound, m.frames, m.decodeErrors, m.readErrors, m.emitted, m.dropped)
	return m
}

// Observer returns a listener.Observer recording under the given protocol label.
func (m *Metrics) Observer(protocol string) listener.Observer {
	m.bound.WithLabelValues(protocol).Set(0)
	return &observer{m: m, protocol: protocol}
}

type observer struct {
	m        *Metrics
	protocol string
}

func (o *observer) CommandApplied(cmd listener.Command) {
	o.m.commands.WithLabelValues(o.protocol, cmd.Kind().String()).Inc()
}

func (o *observer) BoundChanged(bound bool) {
	v := 0.0
	if bound {
		v = 1
	}
	o.m.bound.WithLabelValues(o.protocol).Set(v)
}

func (o *observer) FrameReceived() { o.m.frames.WithLabelValues(o.protocol).Inc() }
func (o *observer) DecodeFailed() { o.m.decodeErrors.WithLabelValues(o.protocol).Inc() }
func (o *observer) ReadFailed() { o.m.readErrors.WithLabelValues(o.protocol).Inc() }
func (o *observer) RecordEmitted() { o.m.emitted.WithLabelValues(o.protocol).Inc() }

func (o *observer) RecordsDropped(n int) {
	o.m.dropped.WithLabelValues(o.protocol).Add(float64(n))
}

// Serve exposes gatherer on addr/metrics until ctx is done.
func Serve(ctx context.Context, log *logger.Log, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.With(logger.Fields{"module": "metrics"}).Warnf("shutdown: %v", err)
		}
	}()

	log.With(logger.Fields{"module": "metrics"}).Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
