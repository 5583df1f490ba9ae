// Package response implements the mutable response builder of
// spec.md §4.4: the lifecycle state machine sitting between the
// application handler and the codec pipeline.
//
// Ground: the teacher's response.go/public_response.go hold status,
// header, and trailer fields directly on a single struct with no
// lifecycle guard; this package keeps that "one struct, fluent
// setters" shape but adds the STARTED/STREAMING/ENDED state machine
// spec.md requires and routes every header/body push through a
// codec.Pipeline instead of writing straight to a socket.
package response

import (
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/coldframe/origin/body"
	"github.com/coldframe/origin/codec"
	"github.com/coldframe/origin/header"
	"github.com/coldframe/origin/internal/herr"
)

// State is the bitset from spec.md §3.
type State uint8

const (
	Started State = 1 << iota
	Streaming
	Ended
)

func (s State) Has(bit State) bool { return s&bit != 0 }

// Response is single-writer: only the handler goroutine that owns it
// may call its methods (spec.md §5's "shared-resource policy").
type Response struct {
	status int
	reason string
	headers header.Map
	cookies      []*Cookie
	cookieIndex  map[string]int
	state        State

	pipeline    *codec.Pipeline
	cookieSink  *codec.CookieFilter
	headersSent bool

	finalBody body.Body // set only via SendBody; nil for the byte-chunk path

	err error
}

// New constructs a Response bound to a per-connection codec pipeline.
// cookieSink is the pipeline's first filter instance — Response writes
// rendered cookie strings into it at freeze time, per spec.md §4.4's
// "freeze cookies" step.
func New(pipeline *codec.Pipeline, cookieSink *codec.CookieFilter) *Response {
	return &Response{
		status:      200,
		headers:     header.New(),
		cookieIndex: make(map[string]int),
		pipeline:    pipeline,
		cookieSink:  cookieSink,
	}
}

// Err returns the first ResponseLifecycle/InternalFilter/ClientGone
// failure observed by any setter or push, or nil.
func (r *Response) Err() error { return r.err }

// State returns the current lifecycle bitset. Always available,
// regardless of error state.
func (r *Response) State() State { return r.state }

func (r *Response) fail(err error) *Response {
	if r.err == nil {
		r.err = err
	}
	return r
}

// SetStatus requires !Started and 100 <= code <= 599.
func (r *Response) SetStatus(code int) *Response {
	if r.state.Has(Started) {
		return r.fail(herr.LifecycleErrorf("setStatus called after Started"))
	}
	if code < 100 || code > 599 {
		return r.fail(herr.LifecycleErrorf("status %d out of range [100,599]", code))
	}
	r.status = code
	return r
}

// SetReason requires !Started.
func (r *Response) SetReason(phrase string) *Response {
	if r.state.Has(Started) {
		return r.fail(herr.LifecycleErrorf("setReason called after Started"))
	}
	r.reason = phrase
	return r
}

// AddHeader requires !Started; appends v to f's (lowercased) value list.
func (r *Response) AddHeader(field, value string) *Response {
	if r.state.Has(Started) {
		return r.fail(herr.LifecycleErrorf("addHeader called after Started"))
	}
	if !httpguts.ValidHeaderFieldName(field) || !httpguts.ValidHeaderFieldValue(value) {
		return r.fail(herr.LifecycleErrorf("invalid header field %q=%q", field, value))
	}
	r.headers.Add(field, value)
	return r
}

// SetHeader requires !Started; replaces f's value list with [v].
func (r *Response) SetHeader(field, value string) *Response {
	if r.state.Has(Started) {
		return r.fail(herr.LifecycleErrorf("setHeader called after Started"))
	}
	if !httpguts.ValidHeaderFieldName(field) || !httpguts.ValidHeaderFieldValue(value) {
		return r.fail(herr.LifecycleErrorf("invalid header field %q=%q", field, value))
	}
	r.headers.Set(field, value)
	return r
}

// SetCookie requires !Started. A later call with the same name
// overwrites the earlier entry in place, preserving its original
// position in the insertion order.
func (r *Response) SetCookie(name, value string, flags ...CookieFlag) *Response {
	if r.state.Has(Started) {
		return r.fail(herr.LifecycleErrorf("setCookie called after Started"))
	}
	c := &Cookie{Name: name, Value: value, Flags: flags}
	if i, ok := r.cookieIndex[name]; ok {
		r.cookies[i] = c
		return r
	}
	r.cookieIndex[name] = len(r.cookies)
	r.cookies = append(r.cookies, c)
	return r
}

// Send requires !Ended and !Streaming; equivalent to End(chunk).
func (r *Response) Send(chunk []byte) *Response {
	if r.state.Has(Ended) || r.state.Has(Streaming) {
		return r.fail(herr.LifecycleErrorf("send called in state %v", r.state))
	}
	return r.End(chunk)
}

// SendBody requires !Ended and !Streaming. It hands b — a ByteRange,
// MultiRange, or Stream body — directly to the driver's writer
// factory instead of funneling it through the codec's per-chunk event
// stream: a seekable range can't be expressed as a sequence of pushed
// bytes. The header event still runs through the full pipeline (so
// cookie stamping and the chunking filter's content-length/
// transfer-encoding decision still apply), but it carries the
// PseudoRawBody marker so CompressionFilter skips negotiating an
// encoding it would never get a chance to apply to this body's bytes.
// The body itself is parked on the Response and must be driven to
// completion afterward via driver.FinishResponse, once the handler
// returns (spec.md §4.5).
func (r *Response) SendBody(b body.Body) *Response {
	if r.state.Has(Ended) || r.state.Has(Streaming) {
		return r.fail(herr.LifecycleErrorf("sendBody called in state %v", r.state))
	}
	if r.err != nil {
		return r
	}
	el := entityLengthHint(b)
	if err := r.pushHeaders(el, true); err != nil {
		return r.fail(err)
	}
	r.finalBody = b
	r.state |= Started | Ended
	return r
}

func entityLengthHint(b body.Body) string {
	switch v := b.(type) {
	case body.ByteRange:
		return strconv.FormatInt(v.Range.Length, 10)
	default:
		return codec.EntityLengthStreaming
	}
}

// Stream requires !Ended. On the first call it freezes cookies and
// pushes the header snapshot with a streaming entity-length; every
// call (first and subsequent) pushes chunk and sets Started|Streaming.
func (r *Response) Stream(chunk []byte) *Response {
	if r.state.Has(Ended) {
		return r.fail(herr.LifecycleErrorf("stream called after Ended"))
	}
	if r.err != nil {
		return r
	}
	if !r.headersSent {
		if err := r.pushHeaders(codec.EntityLengthStreaming, false); err != nil {
			return r.fail(err)
		}
	}
	if err := r.pipeline.Send(codec.Event{Chunk: chunk}); err != nil {
		return r.fail(err)
	}
	r.state |= Started | Streaming
	return r
}

// Flush requires Started and !Ended.
func (r *Response) Flush() *Response {
	if !r.state.Has(Started) || r.state.Has(Ended) {
		return r.fail(herr.LifecycleErrorf("flush called in state %v", r.state))
	}
	if r.err != nil {
		return r
	}
	if err := r.pipeline.Send(codec.Event{Flush: true}); err != nil {
		return r.fail(err)
	}
	return r
}

// End requires !Ended. chunk is optional: End() with no argument sets
// entity-length "@" and emits no body bytes; End(b) sets entity-length
// to len(b) and pushes b before the end sentinel.
func (r *Response) End(chunk ...[]byte) *Response {
	if r.state.Has(Ended) {
		return r.fail(herr.LifecycleErrorf("end called after Ended"))
	}
	if r.err != nil {
		return r
	}
	var payload []byte
	if len(chunk) > 0 {
		payload = chunk[0]
	}

	if !r.headersSent {
		hint := codec.EntityLengthNone
		if payload != nil {
			hint = strconv.Itoa(len(payload))
		}
		if err := r.pushHeaders(hint, false); err != nil {
			return r.fail(err)
		}
	}
	if len(payload) > 0 {
		if err := r.pipeline.Send(codec.Event{Chunk: payload}); err != nil {
			return r.fail(err)
		}
	}
	if err := r.pipeline.Send(codec.Event{End: true}); err != nil {
		return r.fail(err)
	}
	r.state |= Started | Ended
	return r
}

// pushHeaders freezes cookies into the pipeline's cookie filter, sets
// the pseudo-headers, and pushes the header snapshot exactly once.
// raw marks a SendBody header event — its body bytes bypass the
// per-chunk pipeline entirely (see PseudoRawBody).
func (r *Response) pushHeaders(entityLengthHint string, raw bool) error {
	if r.headersSent {
		return nil
	}
	rendered := make([]string, len(r.cookies))
	for i, c := range r.cookies {
		rendered[i] = c.render()
	}
	if r.cookieSink != nil {
		r.cookieSink.Cookies = rendered
	}

	snapshot := r.headers.Clone()
	snapshot.Set(codec.PseudoStatus, strconv.Itoa(r.status))
	if r.reason != "" {
		snapshot.Set(codec.PseudoReason, r.reason)
	}
	snapshot.Set(codec.PseudoEntityLength, entityLengthHint)
	if raw {
		snapshot.Set(codec.PseudoRawBody, "1")
	}

	if err := r.pipeline.Send(codec.Event{Headers: snapshot}); err != nil {
		return err
	}
	r.headersSent = true
	return nil
}

// FinalBody returns the body handed to SendBody, or nil when the
// response was produced via Send/Stream/End's byte-chunk path (in
// which case the driver's writer coroutine reads chunks directly off
// the codec's Sink instead).
func (r *Response) FinalBody() body.Body { return r.finalBody }

// Headers exposes the response's own header map for tests and for a
// driver wanting to inspect what was set pre-freeze. Do not mutate
// after Started.
func (r *Response) Headers() header.Map { return r.headers }

func (r *Response) Status() int    { return r.status }
func (r *Response) Reason() string { return r.reason }
