// Package browser talks to a running Chromium-family browser over the
// DevTools protocol: it finds tabs, evaluates scripts inside them, reads the
// cookie store and relays keyboard shortcuts.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/rpcc"
	"github.com/rs/zerolog/log"

	"github.com/YangchenYe323/hapi/internal/model"
	"github.com/YangchenYe323/hapi/internal/retry"
)

var ErrNoTab = errors.New("没有可用的标签页")

type Browser struct {
	dt *devtool.DevTools

	// Browser-wide session, used for the cookie store.
	conn   *rpcc.Conn
	client *cdp.Client
}

// Connect waits for the DevTools endpoint at devtoolsURL to come up and opens
// a browser-wide session.
func Connect(ctx context.Context, devtoolsURL string, backoff *retry.ExponentialBackoffWithJitter) (*Browser, error) {
	if devtoolsURL == "" {
		return nil, errors.New("浏览器调试地址为空")
	}
	dt := devtool.New(devtoolsURL)

	var version *devtool.Version
	err := backoff.Retry(ctx, func(ctx context.Context) error {
		v, err := dt.Version(ctx)
		if err != nil {
			log.Debug().Err(err).Str("url", devtoolsURL).Msg("等待浏览器调试端口")
			return err
		}
		version = v
		return nil
	}, retriable)
	if err != nil {
		return nil, fmt.Errorf("无法连接到浏览器调试端口 %s: %w", devtoolsURL, err)
	}

	conn, err := rpcc.DialContext(ctx, version.WebSocketDebuggerURL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到浏览器 %s: %w", version.WebSocketDebuggerURL, err)
	}

	log.Info().
		Str("browser", version.Browser).
		Str("protocol", version.Protocol).
		Msg("已连接到浏览器")

	return &Browser{dt: dt, conn: conn, client: cdp.NewClient(conn)}, nil
}

func retriable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (b *Browser) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// Pages lists the page targets, most recently focused first.
func (b *Browser) Pages(ctx context.Context) ([]*devtool.Target, error) {
	targets, err := b.dt.List(ctx)
	if err != nil {
		return nil, err
	}
	return userPages(targets), nil
}

// userPages keeps real web pages in the order the browser reported them.
func userPages(targets []*devtool.Target) []*devtool.Target {
	var pages []*devtool.Target
	for _, t := range targets {
		if t == nil || t.Type != devtool.Page || internalURL(t.URL) {
			continue
		}
		pages = append(pages, t)
	}
	return pages
}

func internalURL(u string) bool {
	for _, prefix := range []string{"devtools://", "chrome://", "chrome-extension://", "edge://", "about:"} {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}

func toTarget(t *devtool.Target) *model.DispatchTarget {
	return &model.DispatchTarget{URL: t.URL, TabID: string(t.ID)}
}

func (b *Browser) ActiveTab(ctx context.Context) (*model.DispatchTarget, error) {
	pages, err := b.Pages(ctx)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoTab
	}
	return toTarget(pages[0]), nil
}

func (b *Browser) Tab(ctx context.Context, tabID string) (*model.DispatchTarget, error) {
	t, err := b.findPage(ctx, tabID)
	if err != nil {
		return nil, err
	}
	return toTarget(t), nil
}

func (b *Browser) findPage(ctx context.Context, tabID string) (*devtool.Target, error) {
	pages, err := b.Pages(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range pages {
		if string(t.ID) == tabID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoTab, tabID)
}

func (b *Browser) UserAgent(ctx context.Context) (string, error) {
	v, err := b.dt.Version(ctx)
	if err != nil {
		return "", err
	}
	return v.UserAgent, nil
}
