// Package writer implements the WriterFactory and the six body
// writers of spec.md §4.5: InlineWriter, StreamWriter,
// ByteRangeWriter, MultiPartByteRangeWriter, ChunkedIteratorWriter,
// and IteratorWriter.
//
// Ground: the teacher's chunk_writer.go supplies the chunked-framing
// idiom (hex length, CRLF, zero-chunk terminator); filetransport's
// http_range.go and mime/multipart_writer.go supply the byte-range
// and multipart-range framing this package generalizes into
// independent Writer implementations selected by body shape rather
// than baked into one ResponseWriter.
package writer

import (
	"bufio"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/coldframe/origin/body"
	"github.com/coldframe/origin/internal/herr"
)

// Sink is the destination a Writer drains into: spec.md's "a
// destination sink." Write must tolerate short writes at the caller
// (io.Writer already guarantees a full write or an error in Go, so
// the "retain the unwritten tail and reattempt" requirement of
// spec.md §4.5 is satisfied by bufio.Writer wrapping a net.Conn, not
// by hand-rolled partial-write bookkeeping).
type Sink interface {
	io.Writer
}

// Writer is the common interface satisfied by all six dispatch
// targets. WriteAll drives the writer to completion, honoring
// ClientGone by stopping and releasing the body source.
type Writer interface {
	WriteAll() (int64, error)
}

// New is the WriterFactory: makeWriter(destination, preserializedHeaders,
// body, protocolVersion) of spec.md §4.5.
func New(dst Sink, headers []byte, b body.Body, protoMajor, protoMinor int) (Writer, error) {
	atLeast11 := protoMajor > 1 || (protoMajor == 1 && protoMinor >= 1)

	switch v := b.(type) {
	case nil:
		return &inlineWriter{dst: dst, headers: headers, payload: nil}, nil
	case body.Buffer:
		return &inlineWriter{dst: dst, headers: headers, payload: v}, nil
	case body.Stream:
		return &streamWriter{dst: dst, headers: headers, src: v.Reader, chunked: atLeast11}, nil
	case body.ByteRange:
		return &byteRangeWriter{dst: dst, headers: headers, body: v}, nil
	case body.MultiRange:
		if v.Boundary == "" {
			v.Boundary = uuid.NewString()
		}
		return &multiRangeWriter{dst: dst, headers: headers, body: v}, nil
	case body.IteratorBody:
		if atLeast11 {
			return &chunkedIteratorWriter{dst: dst, headers: headers, it: v.Iterator}, nil
		}
		return &iteratorWriter{dst: dst, headers: headers, it: v.Iterator}, nil
	default:
		return nil, herr.InvalidBodyf("unrecognized body shape %T", b)
	}
}

// writeFull writes the full buffer, translating a short-write-turned
// error from the underlying sink into ClientGone, per spec.md §7.
func writeFull(dst Sink, p []byte) (int64, error) {
	n, err := dst.Write(p)
	if err != nil {
		return int64(n), herr.NewClientGone(err)
	}
	return int64(n), nil
}

// bufferedSink lets a writer use bufio for chunk-header assembly
// without forcing every caller to pass a *bufio.Writer.
func bufferedSink(dst Sink) *bufio.Writer {
	if bw, ok := dst.(*bufio.Writer); ok {
		return bw
	}
	return bufio.NewWriterSize(dst, 4096)
}

var crlf = []byte("\r\n")

func writeChunkFrame(bw *bufio.Writer, chunk []byte) error {
	if len(chunk) == 0 {
		// Elided: a zero-length chunked frame would be misread as the
		// terminator (spec.md §4.5, §8).
		return nil
	}
	if _, err := fmt.Fprintf(bw, "%x\r\n", len(chunk)); err != nil {
		return err
	}
	if _, err := bw.Write(chunk); err != nil {
		return err
	}
	_, err := bw.Write(crlf)
	return err
}

func writeChunkTerminator(bw *bufio.Writer) error {
	_, err := bw.WriteString("0\r\n\r\n")
	return err
}
