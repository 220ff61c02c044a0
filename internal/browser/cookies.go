package browser

import (
	"context"
	"errors"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/mafredri/cdp/protocol/storage"
	"github.com/mafredri/cdp/rpcc"

	"github.com/YangchenYe323/hapi/internal/cookie"
	"github.com/YangchenYe323/hapi/internal/model"
)

var _ cookie.Store = (*Browser)(nil)

var errNotConnected = errors.New("未连接到浏览器")

func toRecords(cookies []network.Cookie) []cookie.Record {
	records := make([]cookie.Record, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, cookie.Record{
			Name:        c.Name,
			Value:       c.Value,
			Domain:      c.Domain,
			Path:        c.Path,
			Secure:      c.Secure,
			Partitioned: c.PartitionKey != nil,
		})
	}
	return records
}

// unpartitioned drops cookies that live in another top-level site's jar.
func unpartitioned(records []cookie.Record) []cookie.Record {
	kept := records[:0]
	for _, r := range records {
		if !r.Partitioned {
			kept = append(kept, r)
		}
	}
	return kept
}

// URLCookies lets the browser pick the cookies it would send to rawURL,
// in its own order. Network.getCookies is only served by page sessions, so
// one is opened on any tab; the cookie jar is shared.
func (b *Browser) URLCookies(ctx context.Context, rawURL string) ([]model.CookiePair, error) {
	if b.dt == nil {
		return nil, errNotConnected
	}
	pages, err := b.Pages(ctx)
	if err != nil {
		return nil, err
	}
	wsURL := ""
	for _, p := range pages {
		if p.WebSocketDebuggerURL != "" {
			wsURL = p.WebSocketDebuggerURL
			break
		}
	}
	if wsURL == "" {
		return nil, ErrNoTab
	}

	conn, err := rpcc.DialContext(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	args := network.NewGetCookiesArgs().SetURLs([]string{rawURL})
	reply, err := cdp.NewClient(conn).Network.GetCookies(ctx, args)
	if err != nil {
		return nil, err
	}
	return cookie.Pairs(unpartitioned(toRecords(reply.Cookies))), nil
}

// DomainCookies filters the whole jar, read over the browser session.
func (b *Browser) DomainCookies(ctx context.Context, domain string) ([]model.CookiePair, error) {
	if b.client == nil {
		return nil, errNotConnected
	}
	reply, err := b.client.Storage.GetCookies(ctx, &storage.GetCookiesArgs{})
	if err != nil {
		return nil, err
	}
	return cookie.Pairs(cookie.ForDomain(toRecords(reply.Cookies), domain)), nil
}
