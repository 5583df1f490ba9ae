package driver

import (
	"context"
	"io"
)

// Parser is the cooperative coroutine of spec.md §4.2's setup(): reads
// requests off conn via decoder and hands each to onMessage. The
// queue of handed-off-but-not-yet-ENDED requests is bounded by a
// semaphore sized from Config.MaxPipelinedRequests (default 64) — once
// it is full, handing the next decoded request to onMessage blocks
// until an earlier one completes, which is the "driver ... applies
// backpressure to the parser by refusing to resume it until the queue
// drains" of spec.md §4.2. Run awaits each completion handle before
// decoding the next request, so at most one slot is held at a time and
// the loop matches the teacher's conn.go serve loop: decode, hand off,
// await, repeat.
type Parser struct {
	driver    *Driver
	conn      io.Reader
	decoder   Decoder
	onMessage OnMessage
	sem       chan struct{}
}

// Setup builds a Parser bound to conn. write is accepted to match the
// external contract of spec.md §6 (a parser may need it for
// synchronous interim replies, e.g. "100 Continue"); this core leaves
// such replies to the handler via Response, so write is unused here
// but kept in the signature for fidelity to the spec'd contract.
func (d *Driver) Setup(conn io.Reader, decoder Decoder, onMessage OnMessage, _ Write) *Parser {
	return &Parser{
		driver:    d,
		conn:      conn,
		decoder:   decoder,
		onMessage: onMessage,
		sem:       make(chan struct{}, d.cfg.MaxPipelinedRequests),
	}
}

// Run drives the coroutine until the connection is exhausted, the
// decoder reports a fatal error, or ctx is cancelled. A cancelled
// context unwinds the loop without draining any pending completion —
// spec.md §5's "collaborators may impose [a timeout] by cancelling
// the handler coroutine, which must unwind."
func (p *Parser) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := p.decoder.Decode(p.conn) // suspension: waiting for bytes
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		select { // suspension: backpressure when the pipeline queue is full
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		p.driver.acquire()
		p.driver.metrics.incInFlight()
		done := p.onMessage(req)

		select { // suspension: waiting for onMessage completion
		case <-done:
		case <-ctx.Done():
			p.driver.release()
			p.driver.metrics.decInFlight()
			<-p.sem
			return ctx.Err()
		}
		p.driver.release()
		p.driver.metrics.decInFlight()
		<-p.sem
	}
}
