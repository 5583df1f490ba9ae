// Package sniff implements the small subset of the WHATWG content-type
// sniffing algorithm the codec's serialize filter needs: given the
// first bytes of a body with no explicit Content-Type, guess one.
//
// Ground: the teacher's sniff package (exact_sig.go's prefix match,
// text_sig.go's control-byte scan); this package keeps that
// two-strategy shape (exact signature table, then a text fallback)
// but drops the teacher's full ~100-entry legacy table down to the
// handful of signatures worth shipping in a from-scratch core.
package sniff

import "bytes"

const sniffLen = 512

type sig interface {
	match(data []byte, firstNonWS int) string
}

type exactSig struct {
	sig []byte
	ct  string
}

func (e exactSig) match(data []byte, _ int) string {
	if len(data) >= len(e.sig) && bytes.Equal(data[:len(e.sig)], e.sig) {
		return e.ct
	}
	return ""
}

type textSig struct{}

func (textSig) match(data []byte, firstNonWS int) string {
	for _, b := range data[firstNonWS:] {
		switch {
		case b <= 0x08, b == 0x0B, 0x0E <= b && b <= 0x1A, 0x1C <= b && b <= 0x1F:
			return ""
		}
	}
	return "text/plain; charset=utf-8"
}

var sniffSigs = []sig{
	exactSig{[]byte("\x89PNG\r\n\x1a\n"), "image/png"},
	exactSig{[]byte("\xff\xd8\xff"), "image/jpeg"},
	exactSig{[]byte("GIF87a"), "image/gif"},
	exactSig{[]byte("GIF89a"), "image/gif"},
	exactSig{[]byte("RIFF"), "audio/wave"}, // any RIFF container, WEBP included
	exactSig{[]byte("%PDF-"), "application/pdf"},
	exactSig{[]byte("%!PS-Adobe-"), "application/postscript"},
	exactSig{[]byte("<?xml"), "text/xml; charset=utf-8"},
	exactSig{[]byte("<html"), "text/html; charset=utf-8"},
	exactSig{[]byte("<!DOCTYPE HTML"), "text/html; charset=utf-8"},
	exactSig{[]byte(`{"`), "application/json"},
	exactSig{[]byte("[{"), "application/json"},
	textSig{},
}

// DetectContentType implements the content-type sniffing algorithm
// called out in spec.md's "terminal serialization" stage: given up to
// the first 512 bytes of a response body, return its best guess at a
// MIME type. Never returns "".
func DetectContentType(data []byte) string {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	firstNonWS := 0
	for ; firstNonWS < len(data) && isWS(data[firstNonWS]); firstNonWS++ {
	}
	for _, s := range sniffSigs {
		if ct := s.match(data, firstNonWS); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

func isWS(b byte) bool {
	switch b {
	case '\t', '\n', '\x0c', '\r', ' ':
		return true
	}
	return false
}
