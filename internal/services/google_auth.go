package services

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// googleAuthProvider verifies Google sign-in credentials against Google's
// token endpoints. It supports both the one-tap credential flow (an ID token
// posted directly by the client) and the server-side authorization code flow.
type googleAuthProvider struct {
	oauth    *oauth2.Config
	clientID string
}

// NewGoogleAuthProvider creates a GoogleVerifier for the given OAuth client.
// The client secret and redirect URL are only needed for the code flow and
// may be empty when just the credential flow is used.
func NewGoogleAuthProvider(clientID, clientSecret, redirectURL string) GoogleVerifier {
	var cfg *oauth2.Config
	if clientSecret != "" && redirectURL != "" {
		cfg = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}
	}
	return &googleAuthProvider{oauth: cfg, clientID: clientID}
}

func (g *googleAuthProvider) VerifyCredential(ctx context.Context, credential string) (*GoogleIdentity, error) {
	payload, err := idtoken.Validate(ctx, credential, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("validate google id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("google id token has no email claim")
	}
	name, _ := payload.Claims["name"].(string)

	return &GoogleIdentity{
		Subject: payload.Subject,
		Email:   email,
		Name:    name,
	}, nil
}

func (g *googleAuthProvider) ExchangeCode(ctx context.Context, code string) (*GoogleIdentity, error) {
	if g.oauth == nil {
		return nil, fmt.Errorf("authorization code flow requires a client secret and redirect URL")
	}

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("token response has no id_token")
	}

	return g.VerifyCredential(ctx, rawIDToken)
}
