package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prwire/subscriber/internal/auth"
	"github.com/prwire/subscriber/internal/auth/providers"
	"github.com/prwire/subscriber/internal/auth/session"
	"github.com/prwire/subscriber/internal/httputil"
	"github.com/prwire/subscriber/internal/logger"
	"github.com/prwire/subscriber/internal/preview"
	"github.com/prwire/subscriber/internal/store"
	"go.uber.org/zap"
)

// connectionStatus is the payload of the platform status query.
type connectionStatus struct {
	Connected      bool       `json:"connected"`
	Username       string     `json:"username,omitempty"`
	FollowersCount *int       `json:"followersCount,omitempty"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
}

// handleConnectTwitter serves the Twitter connection endpoint: status query
// and OAuth initiation on GET, manual connect by handle on POST.
func (s *Server) handleConnectTwitter(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleConnectTwitterGet(w, r)
	case http.MethodPost:
		s.handleConnectTwitterPost(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConnectTwitterGet(w http.ResponseWriter, r *http.Request) {
	identity, _ := session.FromContext(r.Context())

	if r.URL.Query().Get("oauth") == "true" {
		authURL, err := s.flow.BeginAuthorization(r.Context())
		if err != nil {
			logger.Error("OAuth initialization error", zap.Error(err))
			httputil.WriteError(w, "Failed to initialize OAuth flow", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
		return
	}

	record, err := s.records.Get(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteJSON(w, connectionStatus{Connected: false})
			return
		}
		logger.Error("Failed to load subscriber record", zap.Error(err))
		httputil.WriteError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	platform, ok := record.Platform(s.flow.Provider().Name())
	if !ok {
		httputil.WriteJSON(w, connectionStatus{Connected: false})
		return
	}

	httputil.WriteJSON(w, connectionStatus{
		Connected:      true,
		Username:       platform.Handle,
		FollowersCount: &platform.FollowersCount,
		VerifiedAt:     &platform.VerifiedAt,
	})
}

func (s *Server) handleConnectTwitterPost(w http.ResponseWriter, r *http.Request) {
	identity, _ := session.FromContext(r.Context())

	username, err := readUsername(r)
	if err != nil {
		httputil.WriteError(w, "Username is required", http.StatusBadRequest)
		return
	}

	profile, err := s.flow.Provider().LookupHandle(r.Context(), username)
	if err != nil {
		if errors.Is(err, providers.ErrProfileNotFound) {
			httputil.WriteError(w, "Twitter user not found", http.StatusNotFound)
			return
		}
		logger.Error("Twitter handle lookup failed", zap.String("username", username), zap.Error(err))
		httputil.WriteError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	record, err := s.records.ConnectPlatform(r.Context(), identity.UserID,
		s.flow.Provider().Name(), profile.Username, profile.FollowersCount)
	if err != nil {
		logger.Error("Failed to save subscriber record", zap.Error(err))
		httputil.WriteError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, map[string]interface{}{
		"success":        true,
		"username":       profile.Username,
		"followersCount": profile.FollowersCount,
		"totalFollowers": record.TotalFollowers,
		"verifiedBadge":  record.VerifiedBadge,
	})
}

// readUsername extracts the platform handle from a JSON or form body.
func readUsername(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")

	var username string
	if strings.Contains(contentType, "application/json") {
		var body struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", err
		}
		username = body.Username
	} else {
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		username = r.FormValue("username")
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("username is required")
	}
	return username, nil
}

// handleOAuthCallback completes an authorization attempt. It always answers
// with a redirect carrying either a success flag or a machine-readable
// error reason.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, s.appURL+"/sign-in?error=unauthorized", http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	_, err := s.flow.CompleteAuthorization(r.Context(), identity.UserID, code, state)
	if err != nil {
		reason := auth.FailureServerError
		var flowErr *auth.FlowError
		if errors.As(err, &flowErr) {
			reason = flowErr.Reason
		}
		logger.Error("OAuth callback failed",
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		s.redirectToDashboard(w, r, fmt.Sprintf("error=%s", reason))
		return
	}

	s.redirectToDashboard(w, r, "twitter_success=true")
}

func (s *Server) redirectToDashboard(w http.ResponseWriter, r *http.Request, query string) {
	http.Redirect(w, r, fmt.Sprintf("%s/dashboard?%s&tab=sns", s.appURL, query), http.StatusFound)
}

// handleUser returns the caller's identity together with the stored record.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity, _ := session.FromContext(r.Context())

	record, err := s.records.Get(r.Context(), identity.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Error("Failed to load subscriber record", zap.Error(err))
		httputil.WriteError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, map[string]interface{}{
		"userId": identity.UserID,
		"user": map[string]interface{}{
			"id":    identity.UserID,
			"name":  identity.Name,
			"email": identity.Email,
		},
		"record": record,
	})
}

// handleBadgeImage serves the generated verification image. The count comes
// from the share link as-is and is not re-checked against stored records.
func (s *Server) handleBadgeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	username := r.URL.Query().Get("username")
	followers, err := strconv.Atoi(r.URL.Query().Get("followers"))
	if err != nil || followers < 0 {
		followers = 0
	}

	png, err := s.badges.Render(username, followers)
	if err != nil {
		logger.Error("Failed to render badge image", zap.Error(err))
		httputil.WriteError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400, s-maxage=86400")
	if _, err := w.Write(png); err != nil {
		logger.Error("Failed to write badge image", zap.Error(err))
	}
}

// handlePreview serves share links: crawlers get the link-preview page,
// human visitors are sent to the home page.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.crawlers.IsCrawler(r.UserAgent()) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	slug := strings.TrimPrefix(r.URL.Path, "/preview/")
	share, err := preview.ParseSlug(slug)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.Render(w, share); err != nil {
		logger.Error("Failed to render preview page", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, map[string]string{"status": "ok"})
}
