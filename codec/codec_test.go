package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldframe/origin/header"
)

type recordingSink struct {
	headers header.Map
	chunks  [][]byte
	flushes int
	ended   bool
}

func (s *recordingSink) OnHeaders(h header.Map) error { s.headers = h; return nil }
func (s *recordingSink) OnChunk(c []byte) error       { s.chunks = append(s.chunks, c); return nil }
func (s *recordingSink) OnFlush() error               { s.flushes++; return nil }
func (s *recordingSink) OnEnd() error                 { s.ended = true; return nil }

func TestCookieFilterStampsSetCookieHeaders(t *testing.T) {
	sink := &recordingSink{}
	f := &CookieFilter{Cookies: []string{"a=1; Path=/", "b=2"}}
	p := New(sink, f)

	h := header.New()
	require.NoError(t, p.Send(Event{Headers: h}))
	require.NoError(t, p.Send(Event{End: true}))

	require.Equal(t, []string{"a=1; Path=/", "b=2"}, sink.headers.Values("set-cookie"))
}

func TestChunkingFilterConcreteLength(t *testing.T) {
	sink := &recordingSink{}
	f := &ChunkingFilter{ProtoMajor: 1, ProtoMinor: 1}
	p := New(sink, f)

	h := header.New()
	h.Set(PseudoEntityLength, "5")
	require.NoError(t, p.Send(Event{Headers: h}))

	require.Equal(t, "5", sink.headers.Get("content-length"))
	require.False(t, sink.headers.Has(PseudoEntityLength))
}

func TestChunkingFilterStreamingUsesTransferEncodingOnHTTP11(t *testing.T) {
	sink := &recordingSink{}
	f := &ChunkingFilter{ProtoMajor: 1, ProtoMinor: 1}
	p := New(sink, f)

	h := header.New()
	h.Set(PseudoEntityLength, EntityLengthStreaming)
	require.NoError(t, p.Send(Event{Headers: h}))

	require.Equal(t, "chunked", sink.headers.Get("transfer-encoding"))
	require.Empty(t, sink.headers.Get("content-length"))
}

func TestChunkingFilterStreamingOnHTTP10LeavesNoFramingHeader(t *testing.T) {
	sink := &recordingSink{}
	f := &ChunkingFilter{ProtoMajor: 1, ProtoMinor: 0}
	p := New(sink, f)

	h := header.New()
	h.Set(PseudoEntityLength, EntityLengthStreaming)
	require.NoError(t, p.Send(Event{Headers: h}))

	require.Empty(t, sink.headers.Get("transfer-encoding"))
	require.Empty(t, sink.headers.Get("content-length"))
}

func TestCompressionFilterFlushesIncrementallyAndEmitsTailOnEnd(t *testing.T) {
	sink := &recordingSink{}
	f := &CompressionFilter{Encoding: EncodingGzip}
	p := New(sink, f)

	h := header.New()
	h.Set(PseudoEntityLength, "100")
	require.NoError(t, p.Send(Event{Headers: h}))
	require.Equal(t, "gzip", sink.headers.Get("content-encoding"))
	require.Equal(t, EntityLengthStreaming, sink.headers.Get(PseudoEntityLength))

	require.NoError(t, p.Send(Event{Chunk: []byte("hello")}))
	require.Len(t, sink.chunks, 1) // flushed output for the chunk, before End
	require.NoError(t, p.Send(Event{End: true}))
	require.Len(t, sink.chunks, 2) // compressor tail emitted on End

	require.True(t, sink.ended)
	var total int
	for _, c := range sink.chunks {
		total += len(c)
	}
	require.Greater(t, total, 0)
}

func TestCompressionFilterSkipsNegotiationForRawBody(t *testing.T) {
	sink := &recordingSink{}
	f := &CompressionFilter{Encoding: EncodingGzip}
	p := New(sink, f)

	h := header.New()
	h.Set(PseudoEntityLength, "11")
	h.Set(PseudoRawBody, "1")
	require.NoError(t, p.Send(Event{Headers: h}))

	require.Empty(t, sink.headers.Get("content-encoding"))
	require.Equal(t, "11", sink.headers.Get(PseudoEntityLength))
}

func TestCompressionFilterNoneIsPassthrough(t *testing.T) {
	sink := &recordingSink{}
	f := &CompressionFilter{Encoding: EncodingNone}
	p := New(sink, f)

	h := header.New()
	require.NoError(t, p.Send(Event{Headers: h}))
	require.NoError(t, p.Send(Event{Chunk: []byte("abc")}))
	require.NoError(t, p.Send(Event{End: true}))

	require.Empty(t, sink.headers.Get("content-encoding"))
	require.Equal(t, [][]byte{[]byte("abc")}, sink.chunks)
}

func TestSerializeFilterLeavesStatusForSinkButWriteSubsetExcludesIt(t *testing.T) {
	sink := &recordingSink{}
	f := &SerializeFilter{}
	p := New(sink, f)

	h := header.New()
	h.Set(PseudoStatus, "200")
	h.Set("content-type", "text/plain")
	require.NoError(t, p.Send(Event{Headers: h}))
	require.NoError(t, p.Send(Event{End: true}))

	require.True(t, sink.headers.Has(PseudoStatus))
	require.Equal(t, "text/plain", sink.headers.Get("content-type"))

	var buf bytes.Buffer
	require.NoError(t, sink.headers.WriteSubset(&buf, nil))
	require.NotContains(t, buf.String(), ":status")
}

func TestSerializeFilterSniffsContentTypeFromFirstChunk(t *testing.T) {
	sink := &recordingSink{}
	f := &SerializeFilter{}
	p := New(sink, f)

	h := header.New()
	require.NoError(t, p.Send(Event{Headers: h}))
	require.Nil(t, sink.headers) // headers held back until sniffed

	require.NoError(t, p.Send(Event{Chunk: []byte("<html><body>hi</body></html>")}))
	require.NoError(t, p.Send(Event{End: true}))

	require.NotNil(t, sink.headers)
	require.Equal(t, "text/html; charset=utf-8", sink.headers.Get("content-type"))
	require.Equal(t, [][]byte{[]byte("<html><body>hi</body></html>")}, sink.chunks)
}

func TestSerializeFilterSniffsOnEndWhenBodyNeverArrived(t *testing.T) {
	sink := &recordingSink{}
	f := &SerializeFilter{}
	p := New(sink, f)

	h := header.New()
	require.NoError(t, p.Send(Event{Headers: h}))
	require.NoError(t, p.Send(Event{End: true}))

	require.NotNil(t, sink.headers)
	require.Equal(t, "text/plain; charset=utf-8", sink.headers.Get("content-type"))
	require.True(t, sink.ended)
}

func TestStandardPipelineOrderCookieCompressionChunkingSerialize(t *testing.T) {
	sink := &recordingSink{}
	p := New(sink,
		&CookieFilter{Cookies: []string{"sid=abc"}},
		&CompressionFilter{Encoding: EncodingNone},
		&ChunkingFilter{ProtoMajor: 1, ProtoMinor: 1},
		&SerializeFilter{},
	)

	h := header.New()
	h.Set(PseudoEntityLength, EntityLengthStreaming)
	h.Set("content-type", "text/plain")
	require.NoError(t, p.Send(Event{Headers: h}))
	require.NoError(t, p.Send(Event{Chunk: []byte("abc")}))
	require.NoError(t, p.Send(Event{End: true}))

	require.Equal(t, []string{"sid=abc"}, sink.headers.Values("set-cookie"))
	require.Equal(t, "chunked", sink.headers.Get("transfer-encoding"))
	require.False(t, sink.headers.Has(PseudoEntityLength))
	require.Equal(t, [][]byte{[]byte("abc")}, sink.chunks)
	require.True(t, sink.ended)
}
