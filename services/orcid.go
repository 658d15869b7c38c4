package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// OrcidIdentity is what the ORCID token endpoint tells us about the user.
type OrcidIdentity struct {
	OrcidID string
	Name    string
}

// OrcidClient exchanges an OAuth authorization code for the ORCID iD.
type OrcidClient interface {
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (*OrcidIdentity, error)
}

type OrcidConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthOrcidClient runs the three-legged /authenticate flow against orcid.org
// or the sandbox. ORCID returns the iD and name alongside the access token.
type OAuthOrcidClient struct {
	oauth  *oauth2.Config
	client *http.Client
}

func NewOAuthOrcidClient(cfg OrcidConfig, client *http.Client) *OAuthOrcidClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://orcid.org"
	}
	return &OAuthOrcidClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"/authenticate"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth/authorize",
				TokenURL:  base + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: client,
	}
}

func (c *OAuthOrcidClient) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *OAuthOrcidClient) Exchange(ctx context.Context, code string) (*OrcidIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "orcid token exchange")
	}
	id, _ := tok.Extra("orcid").(string)
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("orcid response carried no iD")
	}
	name, _ := tok.Extra("name").(string)
	return &OrcidIdentity{OrcidID: id, Name: name}, nil
}
