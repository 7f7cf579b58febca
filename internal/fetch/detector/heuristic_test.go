package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeuristic_NeedsJS_EmptyBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.True(t, h.NeedsJS(200, ""))
}

func TestHeuristic_NeedsJS_SPAMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.True(t, h.NeedsJS(200, `<div id="__next"></div>`))
	require.True(t, h.NeedsJS(200, `<div id="app"></div>`))
}

func TestHeuristic_NeedsJS_ScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	require.True(t, h.NeedsJS(200, `<html><script>var a=1;</script><p>t</p></html>`))
}

func TestHeuristic_NeedsJS_DisabledForNon200(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.False(t, h.NeedsJS(404, "not found"))
}

func TestHeuristic_NeedsJS_PlainDocument(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	body := "<html><body>" + strings.Repeat("<p>content</p>", 50) + "</body></html>"
	require.False(t, h.NeedsJS(200, body))
}
