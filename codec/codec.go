// Package codec implements the filter chain of spec.md §4.3: an
// ordered pipeline that accepts a header snapshot, zero or more body
// chunks (or a flush sentinel), and a terminating End event, and
// emits a finished header block plus body frames to the writer.
//
// Ground: the teacher's response_server.go/chunk_writer.go combine
// header finalization and chunking decision into one type
// (*response + *chunkWriter); this package splits that into
// independent Filter stages composed in a Pipeline, per spec.md §9's
// "vector of trait objects... composition is sequential, not
// recursive."
package codec

import (
	"github.com/coldframe/origin/header"
	"github.com/coldframe/origin/internal/herr"
)

// EntityLength pseudo-header sentinels (spec.md §4.3, §6).
const (
	EntityLengthStreaming = "*" // streaming, length unknown
	EntityLengthNone      = "@" // no body
	PseudoEntityLength    = ":aerys-entity-length"
	PseudoStatus          = ":status"
	PseudoReason          = ":reason"

	// PseudoRawBody, when set to any non-empty value, marks a header
	// event whose body bytes bypass the per-chunk event stream
	// entirely (spec.md §4.5's seekable-range cases, realized as
	// Response.SendBody): no OnChunk/OnEnd call will ever carry this
	// response's body through the pipeline, so a filter that transforms
	// chunks in transit — chiefly CompressionFilter — has no
	// opportunity to apply that transform and must not advertise it.
	PseudoRawBody = ":aerys-raw-body"
)

// Event is one item in the codec's event stream: exactly one of
// Headers set, or Chunk set, or Flush true, or End true, per the
// grammar in spec.md §6 ("headers-map, then zero-or-more of {bytes |
// FLUSH}, then END").
type Event struct {
	Headers header.Map // non-nil iff this is the header event
	Chunk   []byte     // non-nil iff this is a body chunk
	Flush   bool
	End     bool
}

// Filter is one stage of the pipeline. A filter may buffer state
// between calls (e.g. the compression filter holds an open encoder
// across chunks) but must forward to next in the same call when it
// has nothing left to delay.
type Filter interface {
	OnHeaders(h header.Map, next func(header.Map) error) error
	OnChunk(chunk []byte, next func([]byte) error) error
	OnFlush(next func() error) error
	// OnEnd may first emit a final trailing chunk (e.g. a compressor's
	// buffered tail written on Close) via emit, then must call next
	// exactly once to propagate the End event itself. emit is a no-op
	// for an empty/nil chunk.
	OnEnd(emit func([]byte) error, next func() error) error
}

// Sink is the terminal consumer a Pipeline drains into — the writer
// coroutine's side of spec.md §4.2's driver.writer() contract.
type Sink interface {
	OnHeaders(h header.Map) error
	OnChunk(chunk []byte) error
	OnFlush() error
	OnEnd() error
}

// Pipeline is the ordered filter composition. Standard construction
// (spec.md §4.3): cookie stamping, compression negotiation, chunking
// decision, terminal serialization.
type Pipeline struct {
	filters []Filter
	sink    Sink
}

// New builds a Pipeline ending at sink, running events through
// filters in order.
func New(sink Sink, filters ...Filter) *Pipeline {
	return &Pipeline{filters: filters, sink: sink}
}

// Send pushes one event through the whole chain. A filter error is
// wrapped as herr.InternalFilter, per spec.md §4.3's "Failure" clause.
func (p *Pipeline) Send(ev Event) error {
	var err error
	switch {
	case ev.Headers != nil:
		err = p.runHeaders(0, ev.Headers)
	case ev.Flush:
		err = p.runFlush(0)
	case ev.End:
		err = p.runEnd(0)
	default:
		err = p.runChunk(0, ev.Chunk)
	}
	if err != nil {
		return herr.NewInternalFilter(err)
	}
	return nil
}

func (p *Pipeline) runHeaders(i int, h header.Map) error {
	if i == len(p.filters) {
		return p.sink.OnHeaders(h)
	}
	return p.filters[i].OnHeaders(h, func(h2 header.Map) error { return p.runHeaders(i+1, h2) })
}

func (p *Pipeline) runChunk(i int, c []byte) error {
	if i == len(p.filters) {
		return p.sink.OnChunk(c)
	}
	return p.filters[i].OnChunk(c, func(c2 []byte) error { return p.runChunk(i+1, c2) })
}

func (p *Pipeline) runFlush(i int) error {
	if i == len(p.filters) {
		return p.sink.OnFlush()
	}
	return p.filters[i].OnFlush(func() error { return p.runFlush(i + 1) })
}

func (p *Pipeline) runEnd(i int) error {
	if i == len(p.filters) {
		return p.sink.OnEnd()
	}
	emit := func(c []byte) error {
		if len(c) == 0 {
			return nil
		}
		return p.runChunk(i+1, c)
	}
	return p.filters[i].OnEnd(emit, func() error { return p.runEnd(i + 1) })
}

// PassthroughFilter embeds into filters that only care about one
// event kind, so they don't each have to restate the trivial
// forwarding for the other three.
type PassthroughFilter struct{}

func (PassthroughFilter) OnHeaders(h header.Map, next func(header.Map) error) error { return next(h) }
func (PassthroughFilter) OnChunk(c []byte, next func([]byte) error) error           { return next(c) }
func (PassthroughFilter) OnFlush(next func() error) error                           { return next() }
func (PassthroughFilter) OnEnd(_ func([]byte) error, next func() error) error       { return next() }
