// Package auth implements the OAuth2 authorization-code-with-PKCE flow that
// connects a social account to the caller's subscriber record.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/prwire/subscriber/internal/auth/pkce"
	"github.com/prwire/subscriber/internal/auth/providers"
	"github.com/prwire/subscriber/internal/logger"
	"github.com/prwire/subscriber/internal/store"
	"github.com/prwire/subscriber/internal/subscriber"
	"go.uber.org/zap"
)

// ErrNotConfigured indicates the OAuth client id is missing from config.
var ErrNotConfigured = errors.New("auth: oauth client is not configured")

// FailureReason is the machine-readable reason carried back to the dashboard
// when an authorization attempt fails.
type FailureReason string

const (
	FailureMissingCode  FailureReason = "missing_code"
	FailureMissingState FailureReason = "missing_state"
	FailureInvalidState FailureReason = "invalid_state"
	FailureInvalidToken FailureReason = "invalid_token"
	FailureUserNotFound FailureReason = "user_not_found"
	FailureOAuthError   FailureReason = "oauth_error"
	FailureServerError  FailureReason = "server_error"
)

// FlowError wraps a failure of the callback flow with its reason. Every
// failure is terminal for the attempt; nothing is retried.
type FlowError struct {
	Reason FailureReason
	Err    error
}

func (e *FlowError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func failure(reason FailureReason, err error) *FlowError {
	return &FlowError{Reason: reason, Err: err}
}

// Service drives one authorization attempt end to end: building the
// authorization URL, exchanging the callback code, fetching the profile,
// and persisting the result.
type Service struct {
	provider providers.Provider
	states   *StateStore
	records  *subscriber.Service
}

// NewService creates the OAuth flow service.
func NewService(provider providers.Provider, states *StateStore, records *subscriber.Service) *Service {
	return &Service{
		provider: provider,
		states:   states,
		records:  records,
	}
}

// Provider returns the configured platform provider.
func (s *Service) Provider() providers.Provider {
	return s.provider
}

// BeginAuthorization generates a fresh state token and PKCE pair, persists
// the state → verifier mapping, and returns the provider authorization URL.
// The verifier must be durably stored before the caller redirects the user;
// a store failure therefore aborts the attempt.
func (s *Service) BeginAuthorization(ctx context.Context) (string, error) {
	if !s.provider.Configured() {
		return "", ErrNotConfigured
	}

	state, err := pkce.NewState()
	if err != nil {
		return "", err
	}
	pair, err := pkce.NewPair()
	if err != nil {
		return "", err
	}

	if err := s.states.Save(ctx, state, pair.Verifier); err != nil {
		return "", err
	}

	logger.Info("Authorization attempt started",
		zap.String("platform", s.provider.Name()),
		zap.String("state", truncate(state)),
	)
	return s.provider.AuthCodeURL(state, pair.Challenge), nil
}

// CompleteAuthorization consumes the redirect parameters of one authorization
// attempt and, on success, returns the updated subscriber record. Any failure
// is returned as a *FlowError carrying the reason the caller should surface.
func (s *Service) CompleteAuthorization(ctx context.Context, userID, code, state string) (*subscriber.Record, error) {
	if code == "" {
		return nil, failure(FailureMissingCode, nil)
	}
	if state == "" {
		return nil, failure(FailureMissingState, nil)
	}

	verifier, err := s.states.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// expired, already used, or never issued
			logger.Warn("No verifier found for state",
				zap.String("platform", s.provider.Name()),
				zap.String("state", truncate(state)),
			)
			return nil, failure(FailureInvalidState, err)
		}
		return nil, failure(FailureServerError, err)
	}

	token, err := s.provider.Exchange(ctx, code, verifier)
	if err != nil {
		if errors.Is(err, providers.ErrMissingAccessToken) {
			return nil, failure(FailureInvalidToken, err)
		}
		logUpstream("Code exchange failed", err)
		return nil, failure(FailureOAuthError, err)
	}

	profile, err := s.provider.FetchProfile(ctx, token)
	if err != nil {
		if errors.Is(err, providers.ErrProfileNotFound) {
			return nil, failure(FailureUserNotFound, err)
		}
		logUpstream("Profile fetch failed", err)
		return nil, failure(FailureOAuthError, err)
	}

	record, err := s.records.ConnectPlatform(ctx, userID, s.provider.Name(), profile.Username, profile.FollowersCount)
	if err != nil {
		return nil, failure(FailureServerError, err)
	}

	logger.Info("Authorization attempt completed",
		zap.String("platform", s.provider.Name()),
		zap.String("handle", profile.Username),
		zap.Int("followers", profile.FollowersCount),
	)
	return record, nil
}

// logUpstream logs provider rejections with response status and body when
// available.
func logUpstream(msg string, err error) {
	var upstream *providers.UpstreamError
	if errors.As(err, &upstream) {
		logger.Error(msg,
			zap.Int("status", upstream.Status),
			zap.String("body", upstream.Body),
		)
		return
	}
	logger.Error(msg, zap.Error(err))
}

// truncate shortens a state token for logging. Verifiers are never logged.
func truncate(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:10] + "..."
}
