package writer

import (
	"io"

	"github.com/coldframe/origin/internal/herr"
)

// streamWriter handles spec.md §4.5 case 2: an opaque readable byte
// source of unknown length. The codec's chunking filter decided
// content-length vs. chunked from the exact same atLeast11 test New
// applies below, so chunked here always matches whatever framing
// header it baked into headers: chunked on HTTP/1.1+ (mirroring
// chunkedIteratorWriter's hex-length/CRLF/terminator framing), raw
// relay with the connection closed by the caller afterward otherwise.
type streamWriter struct {
	dst     Sink
	headers []byte
	src     io.ReadCloser
	chunked bool
}

const streamBufSize = 32 * 1024

func (w *streamWriter) WriteAll() (int64, error) {
	defer w.src.Close()

	n, err := writeFull(w.dst, w.headers)
	if err != nil {
		return n, err
	}

	bw := bufferedSink(w.dst)
	buf := make([]byte, streamBufSize)
	var written int64
	for {
		nr, rerr := w.src.Read(buf)
		if nr > 0 {
			if w.chunked {
				if werr := writeChunkFrame(bw, buf[:nr]); werr != nil {
					return n + written, herr.NewClientGone(werr)
				}
			} else if _, werr := writeFull(bw, buf[:nr]); werr != nil {
				return n + written, werr
			}
			written += int64(nr)
		}
		if rerr == io.EOF {
			if w.chunked {
				if werr := writeChunkTerminator(bw); werr != nil {
					return n + written, herr.NewClientGone(werr)
				}
			}
			if werr := bw.Flush(); werr != nil {
				return n + written, herr.NewClientGone(werr)
			}
			return n + written, nil
		}
		if rerr != nil {
			return n + written, rerr
		}
	}
}
