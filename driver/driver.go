// Package driver implements spec.md §4.2: the per-connection
// cooperative coroutine contract between the socket, the request
// parser collaborator, the application handler, and the response
// writer.
//
// Ground: the teacher's conn.go's serve loop — read request, run the
// handler synchronously, finish the response, decide whether to keep
// the connection alive — is the shape this package generalizes; where
// conn.go hardcodes a *Server and a *response tied to net/http types,
// Parser/WriterCoroutine here are driven by the Decoder and Write
// collaborators spec.md §1 carves out, and backpressure is made
// explicit as a bounded channel instead of conn.go's implicit
// single-goroutine-per-connection assumption.
package driver

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// OnMessage is the driver's callback into the application: given a
// parsed request, run the handler and return a handle that completes
// when the response has reached ENDED (or failed). The parser
// coroutine awaits this handle before resuming — spec.md §4.2's
// "awaiting the suspension handle."
type OnMessage func(*Request) <-chan struct{}

// Write is the driver's sink collaborator: one socket write attempt.
type Write func([]byte) error

// Config bounds in-flight responses per connection (spec.md §4.2's
// "the driver must bound that queue using the configured maximum").
type Config struct {
	MaxPipelinedRequests int
}

func defaultConfig() Config {
	return Config{MaxPipelinedRequests: 64}
}

// Option mutates a Config at Driver construction, matching the
// teacher's small-typed-option-struct idiom (ground: types_server.go's
// flat field block, generalized into functional options since Driver
// is constructed once per listener rather than field-literal per
// request).
type Option func(*Config)

// WithMaxPipeline overrides the default pipelined-request bound.
func WithMaxPipeline(n int) Option {
	return func(c *Config) { c.MaxPipelinedRequests = n }
}

// Driver owns the per-connection parser/writer coroutines and the
// backpressure semaphore bounding them. One Driver may be shared
// across connections; its mutable state is the atomic pending counter
// only.
type Driver struct {
	cfg     Config
	pending int64
	log     *logrus.Entry
	metrics *Metrics
}

// New constructs a Driver. log may be nil (an entry on the logrus
// standard logger is used);
// metrics may be nil (all recordings become no-ops).
func New(log *logrus.Entry, metrics *Metrics, opts ...Option) *Driver {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Driver{cfg: cfg, log: log, metrics: metrics}
}

// PendingRequestCount returns the count of requests handed to
// OnMessage but not yet observed ENDED, for flow control (spec.md
// §4.2).
func (d *Driver) PendingRequestCount() int {
	return int(atomic.LoadInt64(&d.pending))
}

func (d *Driver) acquire() { atomic.AddInt64(&d.pending, 1) }
func (d *Driver) release() { atomic.AddInt64(&d.pending, -1) }
