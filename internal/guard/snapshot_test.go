package guard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSnapshot_MissingIsAnonymous(t *testing.T) {
	s := NewFileSnapshot(filepath.Join(t.TempDir(), "none.json"))
	sess, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Anonymous(), sess)
	assert.NoError(t, s.Clear())
}

func TestFileSnapshot_HoldsNoCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileSnapshot(path)
	require.NoError(t, s.Save(Authenticated(alice)))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(b)
	assert.True(t, strings.HasPrefix(body, `{"authenticated":true,"user":{`), body)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "token")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileSnapshot_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	sess, err := NewFileSnapshot(path).Load()
	assert.Error(t, err)
	assert.False(t, sess.Authenticated)
}
