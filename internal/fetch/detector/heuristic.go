// Package detector decides when static HTML appears to require script
// execution, producing the NeedsJS hint the cascade uses to skip ahead
// to the rendering tiers.
package detector

import "strings"

// Heuristic implements a handful of rule-based checks.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector. threshold is the body size below
// which a script-heavy page is assumed to be an SPA shell.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = []string{
	"__next",
	`id="root"`,
	`id="app"`,
	"data-reactroot",
	"ng-version",
}

// NeedsJS reports whether the fetched document likely needs a JS-capable
// tier to produce usable content.
func (h *Heuristic) NeedsJS(statusCode int, html string) bool {
	if statusCode != 200 {
		return false
	}
	if len(html) == 0 {
		return true
	}
	if len(html) < h.BodyLengthThreshold && scriptDensityHigh(html) {
		return true
	}
	for _, marker := range spaMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether script tags cover at least a quarter
// of the document.
func scriptDensityHigh(body string) bool {
	lower := strings.ToLower(body)
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Treat the rest of the document as part of the malformed script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		var nextSearch int
		if relativeEnd == -1 {
			// Script tag never closes; count the rest.
			nextSearch = total
		} else {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	if scriptCoverage == 0 {
		return false
	}
	return scriptCoverage*100/total >= 25
}
