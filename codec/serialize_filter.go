package codec

import (
	"github.com/coldframe/origin/header"
	"github.com/coldframe/origin/internal/sniff"
)

// SerializeFilter is the terminal stage of the standard pipeline
// (spec.md §4.3: "terminal serialization"). Remaining pseudo-headers
// (":status", ":reason") are left in the map passed to the sink —
// header.Map.WriteSubset already excludes any leading-":" key from the
// wire, so the sink can still read them for the status line without
// this filter needing to delete them first. When no content-type was
// set by the handler, it sniffs one from the first body chunk,
// buffering chunks until either enough bytes have accumulated to sniff
// confidently or End/Flush arrives first. A header event marked
// PseudoRawBody is forwarded at once without a content-type, since its
// body never passes through this pipeline.
//
// Ground: the teacher's response_server.go finalizes headers right
// before the first write; this filter generalizes that single
// responsibility into its own pipeline stage, last in the chain so it
// sees exactly what's about to go on the wire.
type SerializeFilter struct {
	PassthroughFilter

	headers     header.Map
	headersNext func(header.Map) error
	chunkNext   func([]byte) error
	sniffed     bool
	pending     [][]byte
}

const sniffBufferTarget = 512

func (f *SerializeFilter) OnHeaders(h header.Map, next func(header.Map) error) error {
	f.headers = h
	f.headersNext = next
	if h.Get("content-type") != "" || h.Get(PseudoRawBody) != "" {
		f.sniffed = true
		return next(h)
	}
	// Defer forwarding until sniffing resolves a content-type.
	return nil
}

func (f *SerializeFilter) OnChunk(chunk []byte, next func([]byte) error) error {
	if f.sniffed {
		return next(chunk)
	}
	f.chunkNext = next
	f.pending = append(f.pending, chunk)
	if f.bufferedLen() < sniffBufferTarget {
		return nil
	}
	return f.resolveAndFlush(next)
}

func (f *SerializeFilter) OnFlush(next func() error) error {
	if !f.sniffed {
		if err := f.resolveAndFlush(f.chunkNext); err != nil {
			return err
		}
	}
	return next()
}

func (f *SerializeFilter) OnEnd(emit func([]byte) error, next func() error) error {
	if !f.sniffed {
		if err := f.resolveAndFlush(emit); err != nil {
			return err
		}
	}
	return next()
}

func (f *SerializeFilter) bufferedLen() int {
	n := 0
	for _, c := range f.pending {
		n += len(c)
	}
	return n
}

// resolveAndFlush sniffs a content-type from whatever's buffered,
// forwards the (now-finalized) headers downstream via the headers
// continuation captured at OnHeaders time, then drains pending chunks
// through flush.
func (f *SerializeFilter) resolveAndFlush(flush func([]byte) error) error {
	sample := make([]byte, 0, f.bufferedLen())
	for _, c := range f.pending {
		sample = append(sample, c...)
	}
	f.headers.Set("content-type", sniff.DetectContentType(sample))
	f.sniffed = true

	if err := f.headersNext(f.headers); err != nil {
		return err
	}
	for _, c := range f.pending {
		if err := flush(c); err != nil {
			return err
		}
	}
	f.pending = nil
	return nil
}
