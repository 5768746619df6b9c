package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/dash-voice/internal/core/domain"
	"github.com/kirillkom/dash-voice/internal/core/ports"
)

func domainUnavailable(operation string) error {
	return domain.WrapError(domain.ErrProviderUnavailable, operation, errors.New("transcription provider not configured"))
}

// Issuer is the server-side token endpoint backing. It hands the provider
// credential to clients with a short advertised lifetime.
type Issuer struct {
	apiKey string
}

func NewIssuer(apiKey string) *Issuer {
	return &Issuer{apiKey: strings.TrimSpace(apiKey)}
}

func (i *Issuer) IssueToken(_ context.Context) (ports.TranscriptionToken, error) {
	if i.apiKey == "" {
		return ports.TranscriptionToken{}, domainUnavailable("issue transcription token")
	}
	return ports.TranscriptionToken{
		Token:     i.apiKey,
		ExpiresIn: 3600,
	}, nil
}

// IssuerTokenSource adapts the server-side Issuer for sessions running in
// the same process as the api binary.
type IssuerTokenSource struct {
	issuer *Issuer
}

func NewIssuerTokenSource(issuer *Issuer) *IssuerTokenSource {
	return &IssuerTokenSource{issuer: issuer}
}

func (s *IssuerTokenSource) Token(ctx context.Context) (string, error) {
	token, err := s.issuer.IssueToken(ctx)
	if err != nil {
		return "", err
	}
	return token.Token, nil
}

// HTTPTokenSource fetches the client token from the api binary's token
// endpoint. It implements TokenSource for out-of-process capture clients.
type HTTPTokenSource struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPTokenSource(endpoint string) *HTTPTokenSource {
	return &HTTPTokenSource{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPTokenSource) Token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", domainUnavailable("fetch transcription token")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint status: %s", resp.Status)
	}

	var token ports.TranscriptionToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.Token == "" {
		return "", errors.New("token endpoint returned empty token")
	}
	return token.Token, nil
}
