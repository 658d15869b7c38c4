package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orcidServer(t *testing.T, status int, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestOrcidAuthorizeURL(t *testing.T) {
	c := NewOAuthOrcidClient(OrcidConfig{
		BaseURL:     "https://sandbox.orcid.org/",
		ClientID:    "APP-1",
		RedirectURL: "https://journal.example.org/api/auth/orcid/callback",
	}, nil)

	u, err := url.Parse(c.AuthorizeURL("signed-state"))
	require.NoError(t, err)
	assert.Equal(t, "sandbox.orcid.org", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "APP-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "/authenticate", q.Get("scope"))
	assert.Equal(t, "signed-state", q.Get("state"))
	assert.Equal(t, "https://journal.example.org/api/auth/orcid/callback", q.Get("redirect_uri"))
}

func TestOrcidExchangeReadsIdentity(t *testing.T) {
	srv, form := orcidServer(t, http.StatusOK,
		`{"access_token":"tok","token_type":"bearer","expires_in":631138518,"scope":"/authenticate","name":"Ada Author","orcid":"0000-0002-1825-0097"}`)
	c := NewOAuthOrcidClient(OrcidConfig{BaseURL: srv.URL, ClientID: "APP-1", ClientSecret: "shh", RedirectURL: "https://cb"}, srv.Client())

	id, err := c.Exchange(context.Background(), "code-123")
	require.NoError(t, err)
	assert.Equal(t, "0000-0002-1825-0097", id.OrcidID)
	assert.Equal(t, "Ada Author", id.Name)

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "code-123", form.Get("code"))
	assert.Equal(t, "APP-1", form.Get("client_id"))
	assert.Equal(t, "shh", form.Get("client_secret"))
}

func TestOrcidExchangeFailures(t *testing.T) {
	srv, _ := orcidServer(t, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Reused code"}`)
	c := NewOAuthOrcidClient(OrcidConfig{BaseURL: srv.URL, ClientID: "APP-1"}, srv.Client())
	_, err := c.Exchange(context.Background(), "stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orcid token exchange")

	srv, _ = orcidServer(t, http.StatusOK, `{"access_token":"tok","token_type":"bearer"}`)
	c = NewOAuthOrcidClient(OrcidConfig{BaseURL: srv.URL, ClientID: "APP-1"}, srv.Client())
	_, err = c.Exchange(context.Background(), "code")
	assert.EqualError(t, err, "orcid response carried no iD")
}
