// Package cookie gathers the cookies of a platform from every place they
// can live and merges them into one set keyed by name.
package cookie

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/YangchenYe323/hapi/internal/model"
)

var ErrNoCredentials = errors.New("未能获取到任何cookie")

// Store is the browser's cookie store.
type Store interface {
	// Cookies that would be sent with a request to rawURL.
	URLCookies(ctx context.Context, rawURL string) ([]model.CookiePair, error)
	// Cookies stored for domain or any of its subdomains.
	DomainCookies(ctx context.Context, domain string) ([]model.CookiePair, error)
}

type FetchFunc func(ctx context.Context) ([]model.CookiePair, error)

// A named cookie source. Sources are merged in the order they are listed.
type Source struct {
	Name  string
	Fetch FetchFunc
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Sources lists, in priority order, the page's own cookies (when page is
// not nil), the exact URL and each canonical domain.
func (a *Aggregator) Sources(pageURL string, domains []string, page FetchFunc) []Source {
	var sources []Source
	if page != nil {
		sources = append(sources, Source{Name: "page", Fetch: page})
	}
	if a.store == nil {
		return sources
	}
	if pageURL != "" {
		sources = append(sources, Source{
			Name: "url",
			Fetch: func(ctx context.Context) ([]model.CookiePair, error) {
				return a.store.URLCookies(ctx, pageURL)
			},
		})
	}
	for _, domain := range domains {
		sources = append(sources, Source{
			Name: domain,
			Fetch: func(ctx context.Context) ([]model.CookiePair, error) {
				return a.store.DomainCookies(ctx, domain)
			},
		})
	}
	return sources
}

// Collect queries every source concurrently and merges the results. A
// failing source contributes nothing. ErrNoCredentials is returned when the
// merged set is empty.
func (a *Aggregator) Collect(ctx context.Context, pageURL string, domains []string, page FetchFunc) ([]model.CookiePair, error) {
	return Gather(ctx, a.Sources(pageURL, domains, page))
}

// Gather runs sources concurrently and merges them in listed order.
func Gather(ctx context.Context, sources []Source) ([]model.CookiePair, error) {
	results := make([][]model.CookiePair, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			cookies, err := src.Fetch(ctx)
			if err != nil {
				log.Warn().Err(err).Str("source", src.Name).Msg("无法读取cookie来源")
				return nil
			}
			log.Debug().Str("source", src.Name).Int("count", len(cookies)).Msg("读取cookie来源")
			results[i] = cookies
			return nil
		})
	}
	_ = g.Wait()

	merged := Merge(results...)
	if len(merged) == 0 {
		return nil, ErrNoCredentials
	}
	return merged, nil
}

// Merge concatenates lists keeping only the first occurrence of each name,
// within a list as well as across lists. Empty names are dropped.
func Merge(lists ...[]model.CookiePair) []model.CookiePair {
	seen := make(map[string]struct{})
	var merged []model.CookiePair
	for _, list := range lists {
		for _, c := range list {
			if c.Name == "" {
				continue
			}
			if _, ok := seen[c.Name]; ok {
				continue
			}
			seen[c.Name] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}

// Missing returns the names in want that are absent from cookies.
func Missing(cookies []model.CookiePair, want []string) []string {
	have := make(map[string]struct{}, len(cookies))
	for _, c := range cookies {
		have[c.Name] = struct{}{}
	}
	var missing []string
	for _, name := range want {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
