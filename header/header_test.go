package header_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldframe/origin/header"
)

func TestAddPreservesOrderAndLowercases(t *testing.T) {
	h := header.New()
	h.Add("X-A", "1")
	h.Add("x-a", "2")

	require.Equal(t, []string{"1", "2"}, h.Values("X-A"))
	require.Equal(t, "1", h.Get("x-A"))
}

func TestSetResetsToOneElement(t *testing.T) {
	h := header.New()
	h.Add("X-A", "1")
	h.Add("X-A", "2")
	h.Set("X-A", "3")

	require.Equal(t, []string{"3"}, h.Values("X-A"))
}

func TestPseudoHeadersExcludedFromWire(t *testing.T) {
	h := header.New()
	h.Set(":status", "200")
	h.Set("Content-Type", "text/plain")

	var buf bytes.Buffer
	require.NoError(t, h.WriteSubset(&buf, nil))

	out := buf.String()
	require.Contains(t, out, "Content-Type: text/plain\r\n")
	require.NotContains(t, out, ":status")
}

func TestCloneIsDeep(t *testing.T) {
	h := header.New()
	h.Add("X-A", "1")
	h2 := h.Clone()
	h2.Add("X-A", "2")

	require.Equal(t, []string{"1"}, h.Values("X-A"))
	require.Equal(t, []string{"1", "2"}, h2.Values("X-A"))
}
