package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
)

const companyPage = `<html>
<head>
	<title>Acme Holdings Ltd</title>
	<meta name="description" content="Industrial conglomerate registered in Delaware.">
</head>
<body>
	<p>Reach us at contact@acme.test or +1 (555) 010-4477.</p>
	<a href="mailto:press@acme.test?subject=hi">press</a>
	<a href="tel:+44 20 7946 0000">london office</a>
	<a href="https://www.linkedin.com/company/acme">LinkedIn</a>
	<a href="https://acme.test/careers">careers</a>
</body>
</html>`

func TestExtractEntities(t *testing.T) {
	t.Parallel()

	entities, err := New().Extract(context.Background(), "https://acme.test/", companyPage)
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme Holdings Ltd"}, entities[KeyTitle])
	assert.Equal(t, []string{"Industrial conglomerate registered in Delaware."}, entities[KeyDescription])
	assert.Contains(t, entities[KeyEmails], "press@acme.test")
	assert.Contains(t, entities[KeyEmails], "contact@acme.test")
	assert.Contains(t, entities[KeyPhones], "+44 20 7946 0000")
	assert.Equal(t, []string{"https://www.linkedin.com/company/acme"}, entities[KeySocial])
}

func TestExtractCapsPerKey(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 100; i++ {
		b.WriteString("<p>user")
		b.WriteByte(byte('0' + i%10))
		b.WriteString(strings.Repeat("x", i/10))
		b.WriteString("@bulk.test</p>")
	}
	b.WriteString("</body></html>")

	e := New()
	e.MaxPerKey = 5
	entities, err := e.Extract(context.Background(), "https://bulk.test/", b.String())
	require.NoError(t, err)
	assert.Len(t, entities[KeyEmails], 5)
}

func TestExtractResultsSkipsFailures(t *testing.T) {
	t.Parallel()

	results := []fetch.Result{
		{URL: "https://a.test/", HTML: companyPage},
		fetch.Blocked("https://b.test/", "nope"),
		{URL: "https://c.test/", HTML: "<html><body>short but long enough to parse fine, no entities though, just filler words</body></html>"},
	}

	out := ExtractResults(context.Background(), New(), results, 10, 2)
	require.Contains(t, out, "https://a.test/")
	assert.NotContains(t, out, "https://b.test/")
}
