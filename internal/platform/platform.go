// Package platform maps target URLs to the supported content platforms and
// holds, per platform, everything a dispatch needs to know about it.
package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/YangchenYe323/hapi/internal/model"
	"github.com/YangchenYe323/hapi/internal/scraper"
)

type ID string

const (
	Bilibili ID = "bilibili"
	YouTube  ID = "youtube"
	Douyin   ID = "douyin"
	XHS      ID = "xhs"
)

var ErrUnsupportedPlatform = errors.New("不支持的平台")

// Harvest is what a dispatch gathered for one target before the payload
// is assembled.
type Harvest struct {
	URL       string
	Cookies   []model.CookiePair
	Tokens    model.TokenSet
	UserAgent string
}

// A dispatch table entry.
type Profile struct {
	ID   ID
	Name string

	// Short-link and alias hosts. These are checked before every generic
	// marker so an alias is never claimed by a broader pattern.
	SpecificMarkers []string
	// Canonical hosts.
	Markers []string

	// Canonical domains the platform shards its session cookies across,
	// in priority order.
	CookieDomains []string
	// Whether document.cookie of the page is collected.
	PageCookies bool
	// Cookies that signal a logged in session. Only logged when missing.
	AuthCookies []string

	// nil when the platform has no page tokens.
	Tokens *scraper.TokenStrategy
	// Maps a harvest to the platform's optional payload fields.
	Fields func(h *Harvest) model.PlatformFields
	// Optional hook run after cookies are merged.
	Enrich func(ctx context.Context, h *Harvest) error
}

func (p *Profile) String() string {
	return string(p.ID)
}

// Build assembles the payload for h.
func (p *Profile) Build(h *Harvest) *model.CrawlRequest {
	var fields model.PlatformFields
	if p.Fields != nil {
		fields = p.Fields(h)
	}
	return model.NewCrawlRequest(h.Cookies, h.UserAgent, fields)
}

type rule struct {
	marker  string
	profile *Profile
}

// Resolver matches URLs against an ordered rule list: every specific marker
// first, then every generic one, each group in profile order.
type Resolver struct {
	rules []rule
}

func NewResolver(profiles ...*Profile) *Resolver {
	r := &Resolver{}
	for _, p := range profiles {
		for _, m := range p.SpecificMarkers {
			r.rules = append(r.rules, rule{marker: m, profile: p})
		}
	}
	for _, p := range profiles {
		for _, m := range p.Markers {
			r.rules = append(r.rules, rule{marker: m, profile: p})
		}
	}
	return r
}

// Resolve returns the profile of the first rule whose marker is a substring
// of rawURL. Matching is case-sensitive and the URL is not normalized.
func (r *Resolver) Resolve(rawURL string) (*Profile, error) {
	if rawURL != "" {
		for _, rl := range r.rules {
			if rl.marker != "" && strings.Contains(rawURL, rl.marker) {
				return rl.profile, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, rawURL)
}
