// Package preview serves the shareable verification link: crawlers get a
// minimal page with link-preview metadata pointing at the badge image, while
// human visitors are redirected to the home page.
package preview

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/prwire/subscriber/internal/badge"
)

// ErrInvalidSlug indicates a share path that does not follow the
// username-followers-nonce layout.
var ErrInvalidSlug = errors.New("preview: invalid share slug")

// Share is a decoded share path.
type Share struct {
	Username  string
	Followers int
	Nonce     string
}

// ParseSlug decodes a `username-followerCount-randomNonce` path parameter.
// A malformed follower count degrades to zero rather than failing, so stale
// share links still render.
func ParseSlug(slug string) (Share, error) {
	parts := strings.SplitN(slug, "-", 3)
	if len(parts) < 3 || parts[0] == "" {
		return Share{}, ErrInvalidSlug
	}

	followers, err := strconv.Atoi(parts[1])
	if err != nil || followers < 0 {
		followers = 0
	}

	return Share{
		Username:  parts[0],
		Followers: followers,
		Nonce:     parts[2],
	}, nil
}

var pageTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:image" content="{{.ImageURL}}">
<meta property="og:image:width" content="1200">
<meta property="og:image:height" content="630">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta name="twitter:image" content="{{.ImageURL}}">
<meta name="twitter:creator" content="@{{.Username}}">
</head>
<body>
<h1>@{{.Username}}</h1>
<p>{{.FollowersFormatted}} followers on X, verified by PRWIRE.</p>
</body>
</html>
`))

// PageRenderer renders the crawler-facing share page.
type PageRenderer struct {
	appURL string
}

// NewPageRenderer creates a renderer. appURL is the public base URL used to
// build absolute image links; a trailing slash is stripped.
func NewPageRenderer(appURL string) *PageRenderer {
	return &PageRenderer{appURL: strings.TrimSuffix(appURL, "/")}
}

// ImageURL returns the absolute badge image URL for a share.
func (r *PageRenderer) ImageURL(share Share) string {
	return fmt.Sprintf("%s/api/og?username=%s&followers=%d&r=%s",
		r.appURL,
		url.QueryEscape(share.Username),
		share.Followers,
		url.QueryEscape(share.Nonce),
	)
}

// Render writes the share page HTML for crawlers.
func (r *PageRenderer) Render(w io.Writer, share Share) error {
	title := fmt.Sprintf("@%s's Verified Follower Count | PRWIRE", share.Username)
	data := struct {
		Title              string
		Description        string
		Username           string
		FollowersFormatted string
		ImageURL           string
	}{
		Title:              title,
		Description:        fmt.Sprintf("See @%s's verified follower count on X, verified by PRWIRE.", share.Username),
		Username:           share.Username,
		FollowersFormatted: badge.FormatCount(share.Followers),
		ImageURL:           r.ImageURL(share),
	}
	return pageTemplate.Execute(w, data)
}
