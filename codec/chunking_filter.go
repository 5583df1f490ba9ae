package codec

import (
	"strconv"

	"github.com/coldframe/origin/header"
)

// ChunkingFilter implements spec.md §4.3's chunking decision: replace
// the ":aerys-entity-length" pseudo-header with either a concrete
// "content-length" (known length) or "transfer-encoding: chunked"
// (proto >= 1.1, unknown length). For an unknown length on proto < 1.1
// the pseudo-header is removed and no framing header is added, so the
// body is close-delimited.
//
// Ground: the teacher's chunk_writer.go writeHeader, generalized from
// "decide chunking for *this* connection's response" into a
// standalone, reusable filter stage.
type ChunkingFilter struct {
	PassthroughFilter
	ProtoMajor, ProtoMinor int
}

func (f *ChunkingFilter) atLeast11() bool {
	return f.ProtoMajor > 1 || (f.ProtoMajor == 1 && f.ProtoMinor >= 1)
}

func (f *ChunkingFilter) OnHeaders(h header.Map, next func(header.Map) error) error {
	el := h.Get(PseudoEntityLength)
	switch el {
	case EntityLengthNone:
		h.Del(PseudoEntityLength)
	case EntityLengthStreaming:
		if f.atLeast11() {
			h.Set("transfer-encoding", "chunked")
		}
		// else: no framing header; the body is close-delimited.
		h.Del(PseudoEntityLength)
	default:
		if n, err := strconv.ParseInt(el, 10, 64); err == nil && n >= 0 {
			h.Set("content-length", el)
		}
		h.Del(PseudoEntityLength)
	}
	return next(h)
}
