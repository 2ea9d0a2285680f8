package views

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	Name     string
	Username string
	Role     string
}

func renderPage(t *testing.T, r *Renderer, name string, data any) string {
	t.Helper()
	w := httptest.NewRecorder()
	require.NoError(t, r.Instance(name, data).Render(w))
	return w.Body.String()
}

func TestNew_ParsesEveryPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	for _, name := range []string{"login", "dashboard", "intents", "intent_form"} {
		assert.True(t, r.Has(name), name)
	}
	assert.False(t, r.Has("layout"))
}

func TestDashboard_UsesSprigDefaults(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	body := renderPage(t, r, "dashboard", map[string]any{
		"User":        testUser{Username: "root", Role: "admin"},
		"IntentTotal": 1,
	})
	assert.Contains(t, body, "<title>Omnia · Omnia</title>")
	assert.Contains(t, body, "Welcome, root")
	assert.Contains(t, body, "1 intent defined.")

	body = renderPage(t, r, "dashboard", map[string]any{
		"Title":  "Dashboard",
		"User":   testUser{Name: "Root User", Username: "root", Role: "admin"},
		"Failed": true,
	})
	assert.Contains(t, body, "Welcome, Root User")
	assert.Contains(t, body, "Could not load intents.")
	assert.NotContains(t, body, "defined.")
}
