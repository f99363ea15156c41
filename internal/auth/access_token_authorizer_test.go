package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckToken(t *testing.T) {
	a := NewAccessTokenAuthorizer("secret")

	assert.True(t, a.Enabled())
	assert.True(t, a.CheckToken("secret"))
	assert.False(t, a.CheckToken("wrong"))
	assert.False(t, a.CheckToken(""))
}

func TestCheckTokenDisabled(t *testing.T) {
	a := NewAccessTokenAuthorizer("")

	assert.False(t, a.Enabled())
	assert.False(t, a.CheckToken(""))
	assert.False(t, a.CheckToken("anything"))
}

func TestCheckRequest(t *testing.T) {
	a := NewAccessTokenAuthorizer("secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer secret")

	ok, err := a.CheckRequest(req)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckRequestMissingHeader(t *testing.T) {
	a := NewAccessTokenAuthorizer("secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	ok, err := a.CheckRequest(req)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestCheckRequestWrongScheme(t *testing.T) {
	a := NewAccessTokenAuthorizer("secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic secret")

	ok, err := a.CheckRequest(req)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestCheckRequestWrongToken(t *testing.T) {
	a := NewAccessTokenAuthorizer("secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")

	ok, err := a.CheckRequest(req)
	require.NoError(t, err)
	assert.False(t, ok)
}
