package preview

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlug(t *testing.T) {
	tests := []struct {
		name    string
		slug    string
		want    Share
		wantErr bool
	}{
		{
			name: "well formed",
			slug: "alice-15000-a1b2c3",
			want: Share{Username: "alice", Followers: 15000, Nonce: "a1b2c3"},
		},
		{
			name: "nonce containing separators",
			slug: "alice-15000-a1-b2-c3",
			want: Share{Username: "alice", Followers: 15000, Nonce: "a1-b2-c3"},
		},
		{
			name: "malformed count degrades to zero",
			slug: "alice-lots-a1b2c3",
			want: Share{Username: "alice", Followers: 0, Nonce: "a1b2c3"},
		},
		{
			name: "negative count degrades to zero",
			slug: "alice--5-a1b2c3",
			want: Share{Username: "alice", Followers: 0, Nonce: "5-a1b2c3"},
		},
		{name: "too few segments", slug: "alice-15000", wantErr: true},
		{name: "empty username", slug: "-15000-a1b2c3", wantErr: true},
		{name: "empty slug", slug: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSlug(tt.slug)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSlug)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImageURL(t *testing.T) {
	r := NewPageRenderer("https://verify.example/")

	got := r.ImageURL(Share{Username: "alice", Followers: 15000, Nonce: "a1b2c3"})
	assert.Equal(t, "https://verify.example/api/og?username=alice&followers=15000&r=a1b2c3", got)
}

func TestRenderSharePage(t *testing.T) {
	r := NewPageRenderer("https://verify.example")

	var buf bytes.Buffer
	err := r.Render(&buf, Share{Username: "alice", Followers: 15000, Nonce: "a1b2c3"})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<h1>@alice</h1>")
	assert.Contains(t, html, "15,000 followers on X")
	assert.Contains(t, html, `property="og:image" content="https://verify.example/api/og?username=alice&amp;followers=15000&amp;r=a1b2c3"`)
	assert.Contains(t, html, `name="twitter:card" content="summary_large_image"`)
	assert.Contains(t, html, `name="twitter:creator" content="@alice"`)
}

func TestRenderEscapesUsername(t *testing.T) {
	r := NewPageRenderer("https://verify.example")

	var buf bytes.Buffer
	err := r.Render(&buf, Share{Username: `<script>`, Followers: 1, Nonce: "x"})
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "<script>")
}

func TestDefaultCrawlerPolicy(t *testing.T) {
	policy := DefaultCrawlerPolicy()

	crawlers := []string{
		"Twitterbot/1.0",
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"facebookexternalhit/1.1",
		"Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)",
		"WhatsApp/2.23.20.0",
	}
	for _, ua := range crawlers {
		assert.True(t, policy.IsCrawler(ua), "expected crawler: %s", ua)
	}

	browsers := []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Mobile/15E148 Safari/604.1",
		"",
	}
	for _, ua := range browsers {
		assert.False(t, policy.IsCrawler(ua), "expected browser: %s", ua)
	}
}

func TestLoadCrawlerPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawlers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawlers:\n  - mybot\n  - preview-fetcher\n"), 0o644))

	policy, err := LoadCrawlerPolicy(path)
	require.NoError(t, err)

	assert.True(t, policy.IsCrawler("MyBot/2.0"))
	assert.True(t, policy.IsCrawler("Example Preview-Fetcher"))
	assert.False(t, policy.IsCrawler("Twitterbot/1.0"))
}

func TestLoadCrawlerPolicyEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawlers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawlers: []\n"), 0o644))

	_, err := LoadCrawlerPolicy(path)
	assert.Error(t, err)
}
