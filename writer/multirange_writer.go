package writer

import (
	"fmt"
	"io"

	"github.com/coldframe/origin/body"
)

// multiRangeWriter handles spec.md §4.5 case 4: writes headers, then
// for each range emits the multipart delimiter, per-range Content-Type
// and Content-Range fields, a blank line, and length bytes; after the
// last range, the closing delimiter. Ground: mime/multipart_writer.go's
// CreatePart/Close framing, generalized to seek a single source per
// part instead of buffering each part as an io.Writer target.
type multiRangeWriter struct {
	dst     Sink
	headers []byte
	body    body.MultiRange
}

func (w *multiRangeWriter) WriteAll() (int64, error) {
	defer w.body.Source.Close()

	n, err := writeFull(w.dst, w.headers)
	if err != nil {
		return n, err
	}

	for _, rng := range w.body.Ranges {
		nw, werr := w.writePart(rng)
		n += nw
		if werr != nil {
			return n, werr
		}
	}

	nw, err := writeFull(w.dst, []byte("--"+w.body.Boundary+"--\r\n"))
	return n + nw, err
}

func (w *multiRangeWriter) writePart(rng body.Range) (int64, error) {
	preamble := fmt.Sprintf("--%s\r\nContent-Type: %s\r\nContent-Range: bytes %d-%d/%d\r\n\r\n",
		w.body.Boundary, w.body.ContentType, rng.Offset, rng.Offset+rng.Length-1, w.body.Size)

	n, err := writeFull(w.dst, []byte(preamble))
	if err != nil {
		return n, err
	}

	if _, err := w.body.Source.Seek(rng.Offset, io.SeekStart); err != nil {
		return n, err
	}
	nr, err := copyExactly(w.dst, w.body.Source, rng.Length)
	n += nr
	if err != nil {
		return n, err
	}

	nw, err := writeFull(w.dst, crlf)
	return n + nw, err
}
