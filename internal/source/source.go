// Package source defines the reading-source configuration consumed by the
// progress store.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Config describes one site that novels can be read from.
//
// The progress store only relies on BelongsTo; the remaining fields are
// carried for hosts that search and fetch chapters.
type Config struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	MainPageURL string `json:"mainPageUrl" yaml:"main_page_url" toml:"main_page_url"`
	SearchURL   string `json:"searchUrl,omitempty" yaml:"search_url,omitempty" toml:"search_url"`
	Charset     string `json:"charset,omitempty" yaml:"charset,omitempty" toml:"charset"`
}

// Default returns the source used whenever no persisted configuration can be
// recovered.
func Default() Config {
	return Config{
		Name:        "biquge",
		MainPageURL: "https://www.xbiquge.so/",
		SearchURL:   "https://www.xbiquge.so/modules/article/search.php?searchkey={keyword}",
		Charset:     "gbk",
	}
}

// BelongsTo reports whether pageURL is served by this source.
// Matching is a plain prefix test against MainPageURL; an empty MainPageURL
// matches nothing.
func (c Config) BelongsTo(pageURL string) bool {
	if c.MainPageURL == "" {
		return false
	}
	return strings.HasPrefix(pageURL, c.MainPageURL)
}

// ErrInvalid marks a configuration that fails Validate.
var ErrInvalid = errors.New("invalid source config")

// Validate checks the fields a host needs before it will trust a config.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	u, err := url.Parse(c.MainPageURL)
	if err != nil {
		return fmt.Errorf("%w: main page url: %v", ErrInvalid, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: main page url must use http or https", ErrInvalid)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: main page url has no host", ErrInvalid)
	}
	if c.SearchURL != "" && !strings.Contains(c.SearchURL, "{keyword}") {
		return fmt.Errorf("%w: search url must contain {keyword}", ErrInvalid)
	}
	return nil
}

// SearchFor expands the search URL template for keyword.
// Returns "" when the source has no search URL.
func (c Config) SearchFor(keyword string) string {
	if c.SearchURL == "" {
		return ""
	}
	return strings.ReplaceAll(c.SearchURL, "{keyword}", url.QueryEscape(keyword))
}

// UnmarshalJSON rejects entries missing name or mainPageUrl, so that a
// truncated config never decodes into a source that matches nothing.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	var raw struct {
		plain
		Name        *string `json:"name"`
		MainPageURL *string `json:"mainPageUrl"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Name == nil {
		return fmt.Errorf("source config: missing field name")
	}
	if raw.MainPageURL == nil {
		return fmt.Errorf("source config: missing field mainPageUrl")
	}
	*c = Config(raw.plain)
	c.Name = *raw.Name
	c.MainPageURL = *raw.MainPageURL
	return nil
}
