package dispatch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/YangchenYe323/hapi/internal/model"
	"github.com/YangchenYe323/hapi/internal/scraper"
)

type TriggerKind string

const (
	// "collect for current page"
	TriggerPage TriggerKind = "page"
	// "collect this link"
	TriggerLink TriggerKind = "link"
	// Keyboard shortcut relayed from a page.
	TriggerShortcut TriggerKind = "shortcut"
)

// Trigger starts one dispatch.
type Trigger struct {
	Kind TriggerKind
	// Link the user picked. Takes priority over any page.
	LinkURL string
	// Tab the trigger came from, if known. The active tab is used otherwise.
	TabID   string
	PageURL string
}

// Browser is the part of the browser a dispatch talks to.
type Browser interface {
	// The tab the user is looking at.
	ActiveTab(ctx context.Context) (*model.DispatchTarget, error)
	Tab(ctx context.Context, tabID string) (*model.DispatchTarget, error)
	// A channel into the page of a tab. Closing it leaves the tab open.
	OpenPage(ctx context.Context, tabID string) (Page, error)
	UserAgent(ctx context.Context) (string, error)
}

type Page interface {
	scraper.Page
	Close() error
}

// sourceTab finds the tab the trigger refers to. A nil tab means no page
// context is available.
func (d *Dispatcher) sourceTab(ctx context.Context, trig Trigger) *model.DispatchTarget {
	if d.Browser == nil {
		if trig.PageURL != "" {
			return &model.DispatchTarget{URL: trig.PageURL, TabID: trig.TabID}
		}
		return nil
	}

	if trig.TabID != "" {
		if trig.PageURL != "" {
			return &model.DispatchTarget{URL: trig.PageURL, TabID: trig.TabID}
		}
		tab, err := d.Browser.Tab(ctx, trig.TabID)
		if err == nil {
			return tab
		}
		log.Ctx(ctx).Warn().Err(err).Str("tab", trig.TabID).Msg("无法找到触发标签页")
	}

	tab, err := d.Browser.ActiveTab(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("无法获取当前标签页")
		return nil
	}
	return tab
}

// resolveTarget applies link > tab > nothing.
func resolveTarget(trig Trigger, tab *model.DispatchTarget) model.DispatchTarget {
	var target model.DispatchTarget
	if tab != nil {
		target = *tab
	}
	if trig.LinkURL != "" {
		target.URL = trig.LinkURL
	}
	return target
}
