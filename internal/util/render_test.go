package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTemplatesParse(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	for _, page := range []string{"index", "group", "profile", "follow", "post_detail", "create_post", "login", "signup", "about_author", "about_tech", "404", "500"} {
		assert.Contains(t, r.pages, page)
	}
}

func TestRenderWrapsPageInLayout(t *testing.T) {
	fsys := fstest.MapFS{
		"t/layout.html":   {Data: []byte(`{{define "base"}}<main>{{template "content" .}}</main>{{end}}`)},
		"t/partials.html": {Data: []byte(`{{define "greet"}}hi {{.}}{{end}}`)},
		"t/hello.html":    {Data: []byte(`{{define "content"}}{{template "greet" .Name}}{{end}}`)},
	}
	r, err := newRenderer(fsys, "t")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusTeapot, "hello", map[string]string{"Name": "<bob>"}))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "<main>hi &lt;bob&gt;</main>", rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestExecuteUnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, err = r.Execute("nope", "base", nil)
	assert.Error(t, err)
}
