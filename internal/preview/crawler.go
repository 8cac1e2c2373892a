package preview

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultCrawlerSubstrings is the built-in policy table for recognizing
// link-preview crawlers by user-agent substring. Substring matching is
// best-effort; the table is replaceable via LoadCrawlerPolicy.
var defaultCrawlerSubstrings = []string{
	// X/Twitter card fetchers
	"twitterbot",
	"twitter",
	"x bot",
	"x-bot",
	"xbot",
	// general crawlers and chat unfurlers
	"bot",
	"crawler",
	"spider",
	"slurp",
	"googlebot",
	"bingbot",
	"yandexbot",
	"duckduckbot",
	"facebookexternalhit",
	"linkedinbot",
	"slackbot",
	"discordbot",
	"telegrambot",
	"whatsapp",
}

// CrawlerPolicy decides whether a requester is a link-preview crawler, i.e.
// a client that reads markup instead of following client-side redirects.
type CrawlerPolicy struct {
	substrings []string
}

// DefaultCrawlerPolicy returns the built-in policy table.
func DefaultCrawlerPolicy() *CrawlerPolicy {
	return &CrawlerPolicy{substrings: defaultCrawlerSubstrings}
}

// crawlerPolicyFile is the YAML layout of an external policy table.
type crawlerPolicyFile struct {
	Crawlers []string `yaml:"crawlers"`
}

// LoadCrawlerPolicy reads a replacement policy table from a YAML file.
func LoadCrawlerPolicy(path string) (*CrawlerPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read crawler policy %s: %w", path, err)
	}

	var file crawlerPolicyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse crawler policy %s: %w", path, err)
	}
	if len(file.Crawlers) == 0 {
		return nil, fmt.Errorf("crawler policy %s lists no crawlers", path)
	}

	substrings := make([]string, len(file.Crawlers))
	for i, s := range file.Crawlers {
		substrings[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return &CrawlerPolicy{substrings: substrings}, nil
}

// IsCrawler reports whether the user agent matches any policy substring.
func (p *CrawlerPolicy) IsCrawler(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, s := range p.substrings {
		if s != "" && strings.Contains(ua, s) {
			return true
		}
	}
	return false
}
