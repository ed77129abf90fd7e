package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderAuthenticator(t *testing.T) {
	t.Parallel()

	a := NewHeaderAuthenticator()

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-Id", "user-1")
	r.Header.Set("X-User-Name", "Alice")

	user, err := a.VerifyRequest(r)
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, "Alice", user.Name)
}

func TestHeaderAuthenticator_NameFallsBackToID(t *testing.T) {
	t.Parallel()

	a := NewHeaderAuthenticator()

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-Id", "user-1")

	user, err := a.VerifyRequest(r)
	require.NoError(t, err)
	require.Equal(t, "user-1", user.Name)
}

func TestHeaderAuthenticator_MissingIdentity(t *testing.T) {
	t.Parallel()

	a := NewHeaderAuthenticator()

	_, err := a.VerifyRequest(httptest.NewRequest("GET", "/", nil))
	require.Error(t, err)
}
