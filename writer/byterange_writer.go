package writer

import (
	"io"

	"github.com/coldframe/origin/body"
)

// byteRangeWriter handles spec.md §4.5 case 3: writes headers, seeks
// the source to the range's offset, then streams exactly length
// bytes. Ground: filetransport/http_range.go's Content-Range
// rendering, generalized into an independent writer.
type byteRangeWriter struct {
	dst     Sink
	headers []byte
	body    body.ByteRange
}

func (w *byteRangeWriter) WriteAll() (int64, error) {
	defer w.body.Source.Close()

	n, err := writeFull(w.dst, w.headers)
	if err != nil {
		return n, err
	}

	if _, err := w.body.Source.Seek(w.body.Range.Offset, io.SeekStart); err != nil {
		return n, err
	}

	written, err := copyExactly(w.dst, w.body.Source, w.body.Range.Length)
	return n + written, err
}

// copyExactly copies up to length bytes from src to dst, reading until
// length bytes have been written, src reports io.EOF, or a read or
// write fails. Each read is written with one writeFull call; a failed
// write ends the copy.
func copyExactly(dst Sink, src io.Reader, length int64) (int64, error) {
	var total int64
	buf := make([]byte, 32*1024)
	for total < length {
		want := int64(len(buf))
		if remaining := length - total; remaining < want {
			want = remaining
		}
		nr, rerr := src.Read(buf[:want])
		if nr > 0 {
			nw, werr := writeFull(dst, buf[:nr])
			total += nw
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return total, rerr
		}
	}
	return total, nil
}
