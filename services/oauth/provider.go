package oauth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/auth"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	ProviderGoogle = "google"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

var (
	ErrExchangeFailed = errors.New("failed to exchange authorization code")
	ErrProfileFailed  = errors.New("failed to fetch provider profile")
)

// Provider runs the authorization-code flow (with PKCE) against one OAuth
// provider and turns the result into a federated identity.
type Provider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	logger      *logging.Service
}

func NewProvider(name string, cfg *oauth2.Config, userInfoURL string, logger *logging.Service) *Provider {
	return &Provider{
		name:        name,
		config:      cfg,
		userInfoURL: userInfoURL,
		logger:      logger,
	}
}

func NewGoogleProvider(cfg config.GoogleConfig, logger *logging.Service) *Provider {
	return NewProvider(ProviderGoogle, &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint:     google.Endpoint,
	}, googleUserInfoURL, logger)
}

// WithHTTPClient routes token exchange and profile calls through client.
func (p *Provider) WithHTTPClient(client *http.Client) *Provider {
	p.httpClient = client
	return p
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

type userInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Identity exchanges the code and reads the provider profile.
func (p *Provider) Identity(ctx context.Context, code, verifier string) (*auth.FederatedIdentity, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	token, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		p.logger.Warn("oauth code exchange failed", zap.String("provider", p.name), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Warn("oauth profile request rejected", zap.String("provider", p.name), zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d", ErrProfileFailed, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}

	return &auth.FederatedIdentity{
		Provider:          p.name,
		ProviderAccountID: info.Subject,
		Email:             info.Email,
		EmailVerified:     info.EmailVerified,
		Name:              info.Name,
		Image:             info.Picture,
	}, nil
}

// NewState returns an unguessable value for the state and PKCE verifier pair.
func NewState() (state, verifier string) {
	return rand.Text(), oauth2.GenerateVerifier()
}
