package driver

import (
	"bufio"
	"fmt"

	"github.com/coldframe/origin/body"
	"github.com/coldframe/origin/codec"
	"github.com/coldframe/origin/header"
	"github.com/coldframe/origin/internal/herr"
	"github.com/coldframe/origin/response"
	"github.com/coldframe/origin/writer"
)

// writeFuncSink adapts a driver.Write collaborator to io.Writer so the
// writer package's Sink (and bufio) can drive it.
type writeFuncSink struct{ write Write }

func (s writeFuncSink) Write(p []byte) (int, error) {
	if err := s.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriterCoroutine is the codec.Sink that drains a Response's pipeline
// and drives bytes onto the socket (spec.md §4.2's writer(response,
// request?)). It implements the byte-chunk path (Response.Stream/
// Send/End) directly; the seekable-range path (Response.SendBody)
// is completed separately by Finish, once the handler returns, using
// the writer package's WriterFactory.
//
// Ground: the teacher's chunk_writer.go owns exactly this
// responsibility (decide identity vs. chunked framing, write the
// status line once, frame each subsequent Write call) for a single
// connection's current response; this type generalizes it to run
// against the Write collaborator instead of a concrete net.Conn.
type WriterCoroutine struct {
	sink                   writeFuncSink
	bw                     *bufio.Writer
	protoMajor, protoMinor int
	metrics                *Metrics

	chunked bool
	written int64
}

// Writer builds a WriterCoroutine bound to write. protoMajor/Minor
// must match the request being responded to (chunked framing is only
// valid at HTTP/1.1+, per spec.md §4.3's chunking decision).
func (d *Driver) Writer(write Write, protoMajor, protoMinor int) *WriterCoroutine {
	return &WriterCoroutine{
		sink:       writeFuncSink{write},
		protoMajor: protoMajor,
		protoMinor: protoMinor,
		metrics:    d.metrics,
	}
}

func (wc *WriterCoroutine) OnHeaders(h header.Map) error {
	wc.bw = bufio.NewWriterSize(wc.sink, 4096)
	wc.chunked = h.Get("transfer-encoding") == "chunked"

	status := h.Get(codec.PseudoStatus)
	if status == "" {
		status = "200"
	}
	reason := h.Get(codec.PseudoReason)
	if _, err := fmt.Fprintf(wc.bw, "HTTP/%d.%d %s %s\r\n", wc.protoMajor, wc.protoMinor, status, reason); err != nil {
		return herr.NewClientGone(err)
	}
	if err := h.WriteSubset(wc.bw, nil); err != nil {
		return herr.NewClientGone(err)
	}
	if _, err := wc.bw.WriteString("\r\n"); err != nil {
		return herr.NewClientGone(err)
	}
	if err := wc.bw.Flush(); err != nil {
		return herr.NewClientGone(err)
	}
	return nil
}

func (wc *WriterCoroutine) OnChunk(chunk []byte) error {
	var err error
	if wc.chunked {
		err = writer.WriteChunkFrame(wc.bw, chunk)
	} else if len(chunk) > 0 {
		_, err = wc.bw.Write(chunk)
	}
	if err != nil {
		return herr.NewClientGone(err)
	}
	wc.written += int64(len(chunk))
	wc.metrics.addBytes(wc.writerKind(), int64(len(chunk)))
	return nil
}

func (wc *WriterCoroutine) OnFlush() error {
	if err := wc.bw.Flush(); err != nil {
		return herr.NewClientGone(err)
	}
	return nil
}

func (wc *WriterCoroutine) OnEnd() error {
	if wc.chunked {
		if err := writer.WriteChunkTerminator(wc.bw); err != nil {
			return herr.NewClientGone(err)
		}
	}
	if err := wc.bw.Flush(); err != nil {
		return herr.NewClientGone(err)
	}
	return nil
}

func (wc *WriterCoroutine) writerKind() string {
	if wc.chunked {
		return "chunked"
	}
	return "identity"
}

// Finish completes a response built via Response.SendBody: headers
// were already pushed through the codec and written by OnHeaders
// above, so the body is streamed directly by the matching Writer with
// an empty pre-serialized header block. Callers don't invoke Finish
// directly — use FinishResponse, which only calls it when the
// response actually went through SendBody.
func (wc *WriterCoroutine) Finish(b body.Body) error {
	if b == nil {
		return nil
	}
	w, err := writer.New(wc.sink, nil, b, wc.protoMajor, wc.protoMinor)
	if err != nil {
		return err
	}
	n, err := w.WriteAll()
	wc.written += n
	wc.metrics.addBytes(bodyWriterKind(b), n)
	return err
}

// FinishResponse completes a response after the handler has returned
// but before its completion handle is signaled (spec.md §4.2's
// suspension point "after handing a parsed request to onMessage until
// that message completes" only resolves once the response has truly
// reached ENDED). Send/Stream/End already drove every byte through
// the codec's OnChunk/OnEnd events while the handler ran, so
// resp.FinalBody() is nil and this is a no-op; SendBody only pushed
// the header event and parked its seekable body on resp, so that body
// still needs to be streamed here. Every caller that constructs a
// Response via NewResponse must call FinishResponse exactly once
// before closing the OnMessage completion channel.
func FinishResponse(wc *WriterCoroutine, resp *response.Response) error {
	b := resp.FinalBody()
	if b == nil {
		return nil
	}
	return wc.Finish(b)
}

func bodyWriterKind(b body.Body) string {
	switch b.(type) {
	case body.ByteRange:
		return "byte-range"
	case body.MultiRange:
		return "multi-range"
	case body.Stream:
		return "stream"
	default:
		return "other"
	}
}

// NewResponse assembles the standard codec pipeline (cookie stamping,
// compression negotiation, chunking decision, terminal serialization
// — spec.md §4.3's fixed order) bound to this WriterCoroutine, and
// returns the Response the handler will operate on.
func NewResponse(wc *WriterCoroutine, acceptEncoding string) *response.Response {
	cookies := &codec.CookieFilter{}
	compression := &codec.CompressionFilter{Encoding: codec.NegotiateEncoding(acceptEncoding)}
	chunking := &codec.ChunkingFilter{ProtoMajor: wc.protoMajor, ProtoMinor: wc.protoMinor}
	serialize := &codec.SerializeFilter{}

	pipeline := codec.New(wc, cookies, compression, chunking, serialize)
	return response.New(pipeline, cookies)
}
