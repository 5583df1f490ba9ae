package writer_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldframe/origin/body"
	"github.com/coldframe/origin/internal/herr"
	"github.com/coldframe/origin/writer"
)

type sliceIterator struct {
	chunks [][]byte
	i      int
}

func (s *sliceIterator) Next() (body.Chunk, error) {
	if s.i >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

type seekBuf struct {
	*bytes.Reader
}

func (seekBuf) Close() error { return nil }

func newSeekBuf(data []byte) *seekBuf {
	return &seekBuf{bytes.NewReader(data)}
}

func TestInlineWriterStringBody(t *testing.T) {
	var out bytes.Buffer
	w, err := writer.New(&out, []byte("HEAD"), body.Buffer("hi"), 1, 1)
	require.NoError(t, err)

	n, err := w.WriteAll()
	require.NoError(t, err)
	require.Equal(t, int64(6), n)
	require.Equal(t, "HEADhi", out.String())
}

func TestInlineWriterEmptyBody(t *testing.T) {
	var out bytes.Buffer
	w, err := writer.New(&out, []byte("HEAD"), nil, 1, 1)
	require.NoError(t, err)

	_, err = w.WriteAll()
	require.NoError(t, err)
	require.Equal(t, "HEAD", out.String())
}

func TestChunkedIteratorWriterScenario2(t *testing.T) {
	var out bytes.Buffer
	it := &sliceIterator{chunks: [][]byte{[]byte("ab"), []byte("cd")}}
	w, err := writer.New(&out, []byte("HEAD"), body.IteratorBody{Iterator: it}, 1, 1)
	require.NoError(t, err)

	_, err = w.WriteAll()
	require.NoError(t, err)
	require.Equal(t, "HEAD2\r\nab\r\n2\r\ncd\r\n0\r\n\r\n", out.String())
}

func TestChunkedIteratorWriterElidesEmptyChunks(t *testing.T) {
	var out bytes.Buffer
	it := &sliceIterator{chunks: [][]byte{[]byte(""), []byte("x"), nil}}
	w, err := writer.New(&out, nil, body.IteratorBody{Iterator: it}, 1, 1)
	require.NoError(t, err)

	_, err = w.WriteAll()
	require.NoError(t, err)
	require.Equal(t, "1\r\nx\r\n0\r\n\r\n", out.String())
}

func TestIteratorWriterProtocol10NoChunking(t *testing.T) {
	var out bytes.Buffer
	it := &sliceIterator{chunks: [][]byte{[]byte("ab"), []byte("cd")}}
	w, err := writer.New(&out, []byte("HEAD"), body.IteratorBody{Iterator: it}, 1, 0)
	require.NoError(t, err)

	_, err = w.WriteAll()
	require.NoError(t, err)
	require.Equal(t, "HEADabcd", out.String())
}

func TestByteRangeWriterScenario3(t *testing.T) {
	var out bytes.Buffer
	src := bytes.Repeat([]byte("0123456789"), 20) // 200 bytes
	b := body.ByteRange{
		Source: newSeekBuf(src),
		Range:  body.Range{Offset: 100, Length: 50},
		Size:   int64(len(src)),
	}
	w, err := writer.New(&out, []byte("HEAD"), b, 1, 1)
	require.NoError(t, err)

	_, err = w.WriteAll()
	require.NoError(t, err)
	require.Equal(t, "HEAD"+string(src[100:150]), out.String())
}

func TestMultiRangeWriterScenario4(t *testing.T) {
	var out bytes.Buffer
	src := bytes.Repeat([]byte("x"), 100)
	b := body.MultiRange{
		Source:      newSeekBuf(src),
		Ranges:      []body.Range{{Offset: 0, Length: 10}, {Offset: 50, Length: 5}},
		Size:        int64(len(src)),
		ContentType: "text/plain",
		Boundary:    "B",
	}
	w, err := writer.New(&out, nil, b, 1, 1)
	require.NoError(t, err)

	_, err = w.WriteAll()
	require.NoError(t, err)

	expect := "--B\r\nContent-Type: text/plain\r\nContent-Range: bytes 0-9/100\r\n\r\n" +
		string(bytes.Repeat([]byte("x"), 10)) + "\r\n" +
		"--B\r\nContent-Type: text/plain\r\nContent-Range: bytes 50-54/100\r\n\r\n" +
		string(bytes.Repeat([]byte("x"), 5)) + "\r\n" +
		"--B--\r\n"
	require.Equal(t, expect, out.String())
}

func TestStreamWriterHTTP11ChunkFramesOutput(t *testing.T) {
	var out bytes.Buffer
	src := io.NopCloser(bytes.NewReader([]byte("hello")))
	w, err := writer.New(&out, []byte("HEAD"), body.Stream{Reader: src}, 1, 1)
	require.NoError(t, err)

	_, err = w.WriteAll()
	require.NoError(t, err)
	require.Equal(t, "HEAD5\r\nhello\r\n0\r\n\r\n", out.String())
}

func TestStreamWriterHTTP10RelaysRawBytes(t *testing.T) {
	var out bytes.Buffer
	src := io.NopCloser(bytes.NewReader([]byte("hello")))
	w, err := writer.New(&out, []byte("HEAD"), body.Stream{Reader: src}, 1, 0)
	require.NoError(t, err)

	_, err = w.WriteAll()
	require.NoError(t, err)
	require.Equal(t, "HEADhello", out.String())
}

type failingSink struct{}

func (failingSink) Write([]byte) (int, error) { return 0, errors.New("reset") }

func TestInvalidBodyShapeIsProgrammerError(t *testing.T) {
	var out bytes.Buffer
	_, err := writer.New(&out, nil, struct{ body.Body }{}, 1, 1)
	require.Error(t, err)
	require.True(t, herr.IsInvalidBody(err))
}

func TestWriteFailureSurfacesAsClientGone(t *testing.T) {
	w, err := writer.New(failingSink{}, []byte("H"), body.Buffer("x"), 1, 1)
	require.NoError(t, err)
	_, err = w.WriteAll()
	require.Error(t, err)
	require.True(t, herr.IsClientGone(err))
}
