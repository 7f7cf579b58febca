package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/about">about</a>
		<a href="team/">team</a>
		<a href="https://site.test/contact#form">contact</a>
		<a href="https://partner.test/deal">partner</a>
		<a href="//cdn.test/asset">cdn</a>
		<a href="javascript:void(0)">noop</a>
		<a href="mailto:info@site.test">mail</a>
		<a href="tel:+15551234">phone</a>
		<a href="#top">anchor</a>
		<a href="/about">duplicate</a>
		<a href="ftp://files.test/dump">ftp</a>
	</body></html>`

	internal, external, err := ExtractLinks("https://site.test/company/", html)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://site.test/about",
		"https://site.test/company/team/",
		"https://site.test/contact",
	}, internal)
	assert.Equal(t, []string{
		"https://partner.test/deal",
		"https://cdn.test/asset",
	}, external)
}

func TestExtractLinksEmptyDocument(t *testing.T) {
	t.Parallel()

	internal, external, err := ExtractLinks("https://site.test/", "<html></html>")
	require.NoError(t, err)
	assert.Empty(t, internal)
	assert.Empty(t, external)
}

func TestExtractLinksBadPageURL(t *testing.T) {
	t.Parallel()

	_, _, err := ExtractLinks("http://%zz", "<html></html>")
	require.Error(t, err)
}

func TestResultDistinctHelpers(t *testing.T) {
	t.Parallel()

	r := &Result{Pages: []Page{
		{Internal: []string{"https://s.test/a", "https://s.test/b"}, External: []string{"https://x.test/1"}},
		{Internal: []string{"https://s.test/b"}, External: []string{"https://x.test/1", "https://y.test/2"}},
	}}

	assert.Equal(t, []string{"https://s.test/a", "https://s.test/b"}, r.AllInternalURLs())
	assert.Equal(t, []string{"https://x.test/1", "https://y.test/2"}, r.AllExternalURLs())
	assert.Equal(t, []string{"x.test", "y.test"}, r.ExternalHosts())
}
