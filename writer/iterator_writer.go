package writer

import (
	"io"

	"github.com/coldframe/origin/body"
)

// iteratorWriter handles spec.md §4.5 case 6: protocol < 1.1 and a
// lazy byte sequence. No chunked framing is possible without a
// length, so the end of the body is marked only by closing the
// connection. This writer does not close it; WriteAll just reports how
// many bytes it sent.
type iteratorWriter struct {
	dst     Sink
	headers []byte
	it      body.Iterator
}

func (w *iteratorWriter) WriteAll() (int64, error) {
	n, err := writeFull(w.dst, w.headers)
	if err != nil {
		return n, err
	}

	for {
		chunk, ierr := w.it.Next()
		if len(chunk) > 0 {
			nw, werr := writeFull(w.dst, chunk)
			n += nw
			if werr != nil {
				return n, werr
			}
		}
		if ierr == io.EOF {
			return n, nil
		}
		if ierr != nil {
			return n, ierr
		}
	}
}
