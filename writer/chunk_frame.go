package writer

import "bufio"

// WriteChunkFrame and WriteChunkTerminator are exported so the driver
// package's writer coroutine — which streams bytes pushed through
// Response.Stream/Send/End directly to the socket rather than through
// a body.Body dispatched by New — can reuse the exact framing the
// ChunkedIteratorWriter uses, instead of re-deriving it.
func WriteChunkFrame(bw *bufio.Writer, chunk []byte) error {
	return writeChunkFrame(bw, chunk)
}

func WriteChunkTerminator(bw *bufio.Writer) error {
	return writeChunkTerminator(bw)
}
