package writer

import (
	"io"

	"github.com/coldframe/origin/body"
	"github.com/coldframe/origin/internal/herr"
)

// chunkedIteratorWriter handles spec.md §4.5 case 5: protocol >= 1.1
// and a lazy byte sequence. Ground: the teacher's chunk_writer.go
// Write/close methods supply the "<hex-length>\r\n<chunk>\r\n" framing
// and "0\r\n\r\n" terminator this writer reproduces independently of
// any response-buffering concerns.
type chunkedIteratorWriter struct {
	dst     Sink
	headers []byte
	it      body.Iterator
}

func (w *chunkedIteratorWriter) WriteAll() (int64, error) {
	n, err := writeFull(w.dst, w.headers)
	if err != nil {
		return n, err
	}

	bw := bufferedSink(w.dst)
	var written int64
	for {
		chunk, ierr := w.it.Next()
		if len(chunk) > 0 {
			if werr := writeChunkFrame(bw, chunk); werr != nil {
				return n + written, herr.NewClientGone(werr)
			}
			written += int64(len(chunk))
		}
		if ierr == io.EOF {
			if werr := writeChunkTerminator(bw); werr != nil {
				return n + written, herr.NewClientGone(werr)
			}
			if werr := bw.Flush(); werr != nil {
				return n + written, herr.NewClientGone(werr)
			}
			return n + written, nil
		}
		if ierr != nil {
			return n + written, ierr
		}
	}
}
