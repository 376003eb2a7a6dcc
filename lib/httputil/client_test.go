package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewClientSendsHeadersAndCookies(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseUrl: server.URL,
		Timeout: time.Second * 5,
		Headers: map[string]string{"X-Token": "abc"},
		Cookies: map[string]string{"session": "s1", "empty": ""},
	})

	res, err := client.R().Get("/ping")
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, res.StatusCode())

	require.Equal(t, DefaultUserAgent, got.Header.Get("User-Agent"))
	require.Equal(t, "abc", got.Header.Get("X-Token"))
	cookie, err := got.Cookie("session")
	require.NoError(t, err)
	require.Equal(t, "s1", cookie.Value)
	_, err = got.Cookie("empty")
	require.ErrorIs(t, err, http.ErrNoCookie)
}
