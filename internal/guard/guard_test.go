package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	signedIn := NewStore(&countingResolver{sess: Authenticated(alice)})
	signedOut := NewStore(&countingResolver{sess: Anonymous()})

	tests := []struct {
		name     string
		store    *Store
		nav      Navigation
		allow    bool
		redirect string
	}{
		{"auth route signed out", signedOut, Navigation{Path: "/nlp/intent", Access: AccessRequiresAuth}, false, "/login?redirect=%2Fnlp%2Fintent"},
		{"auth route signed in", signedIn, Navigation{Path: "/nlp/intent", Access: AccessRequiresAuth}, true, ""},
		{"guest route signed in", signedIn, Navigation{Path: "/login", Access: AccessRequiresGuest}, false, "/dashboard"},
		{"guest route signed out", signedOut, Navigation{Path: "/login", Access: AccessRequiresGuest}, true, ""},
		{"open route signed out", signedOut, Navigation{Path: "/about"}, true, ""},
		{"open route signed in", signedIn, Navigation{Path: "/about"}, true, ""},
	}
	g := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Evaluate(context.Background(), tt.store, tt.nav)
			assert.Equal(t, tt.allow, d.Allow)
			if tt.redirect == "" {
				assert.Nil(t, d.Redirect)
				return
			}
			require.NotNil(t, d.Redirect)
			assert.Equal(t, tt.redirect, d.Redirect.URL())
		})
	}
}

func TestEvaluate_FailClosed(t *testing.T) {
	s := NewStore(&countingResolver{sess: Authenticated(alice), err: errors.New("timeout")})
	d := New().Evaluate(context.Background(), s, Navigation{Path: "/dashboard", Access: AccessRequiresAuth})

	assert.False(t, d.Allow)
	require.NotNil(t, d.Redirect)
	assert.Equal(t, "/login", d.Redirect.Path)
	assert.Equal(t, "/dashboard", d.Redirect.Query.Get(RedirectParam))
}

func TestEvaluate_Idempotent(t *testing.T) {
	r := &countingResolver{sess: Authenticated(alice)}
	s := NewStore(r)
	g := New()
	nav := Navigation{Path: "/dashboard", Access: AccessRequiresAuth}

	first := g.Evaluate(context.Background(), s, nav)
	for range 3 {
		assert.Equal(t, first, g.Evaluate(context.Background(), s, nav))
	}
	assert.EqualValues(t, 1, r.calls.Load())
}

func TestResumePath(t *testing.T) {
	g := New()
	for in, want := range map[string]string{
		"/nlp/intent?page=2":   "/nlp/intent?page=2",
		"":                     "/dashboard",
		"https://evil.example": "/dashboard",
		"//evil.example/x":     "/dashboard",
		`/\evil.example`:       "/dashboard",
		"/login?redirect=/x":   "/dashboard",
		"relative":             "/dashboard",
	} {
		assert.Equal(t, want, g.ResumePath(in), "ResumePath(%q)", in)
	}
}

func TestAccessString(t *testing.T) {
	assert.Equal(t, "requiresAuth", AccessRequiresAuth.String())
	assert.Equal(t, "requiresGuest", AccessRequiresGuest.String())
	assert.Equal(t, "none", AccessNone.String())
}
