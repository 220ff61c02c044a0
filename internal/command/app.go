package command

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/YangchenYe323/hapi/internal/bilibili"
	"github.com/YangchenYe323/hapi/internal/browser"
	"github.com/YangchenYe323/hapi/internal/config"
	"github.com/YangchenYe323/hapi/internal/delivery"
	"github.com/YangchenYe323/hapi/internal/dispatch"
	"github.com/YangchenYe323/hapi/internal/notify"
	"github.com/YangchenYe323/hapi/internal/platform"
	"github.com/YangchenYe323/hapi/internal/retry"
	"github.com/YangchenYe323/hapi/internal/store"
)

const (
	appName     = "hapi"
	pageTimeout = 5 * time.Second
)

// Waits out a browser that is still starting.
var connectBackoff = &retry.ExponentialBackoffWithJitter{
	Min:         200 * time.Millisecond,
	Max:         2 * time.Second,
	Multiplier:  2,
	Jttr:        0.2,
	MaxAttempts: 6,
}

// app holds everything a dispatch needs for the lifetime of one command.
type app struct {
	browser    *browser.Browser
	journal    store.Store
	dispatcher *dispatch.Dispatcher
}

// newApp wires a dispatcher from cfg. When optionalBrowser is set a browser
// that cannot be reached is logged and left out.
func newApp(ctx context.Context, cfg *config.Config, optionalBrowser bool) (*app, error) {
	a := &app{}

	b, err := browser.Connect(ctx, cfg.DevTools.URL, connectBackoff)
	if err != nil {
		if !optionalBrowser {
			return nil, err
		}
		log.Warn().Err(err).Msg("无法连接到浏览器，将只使用链接")
	} else {
		a.browser = b
	}

	if cfg.Journal {
		s, err := store.NewBadger(cfg.DBDir())
		if err != nil {
			log.Warn().Err(err).Msg("无法打开数据库，将不记录请求结果")
		} else {
			a.journal = s
		}
	}

	notifiers := notify.Multi{notify.Log{}}
	if cfg.Notify.Desktop {
		notifiers = append(notifiers, &notify.Desktop{AppName: appName})
	}

	bili := bilibili.DefaultClient.WithUserAgent(cfg.UserAgent)

	a.dispatcher = &dispatch.Dispatcher{
		Resolver:    platform.NewResolver(platform.Defaults(bili)...),
		Delivery:    delivery.New(cfg.Collector.Endpoint, &http.Client{Timeout: cfg.Collector.Timeout}),
		Notifier:    notifiers,
		UserAgent:   cfg.UserAgent,
		PageTimeout: pageTimeout,
	}
	// Interface fields stay nil without a browser or journal.
	if a.browser != nil {
		a.dispatcher.Browser = a.browser
		a.dispatcher.Cookies = a.browser
	}
	if a.journal != nil {
		a.dispatcher.Journal = a.journal
	}
	return a, nil
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			log.Warn().Err(err).Msg("无法关闭数据库")
		}
	}
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			log.Debug().Err(err).Msg("关闭浏览器连接失败")
		}
	}
}

func printOutcome(cmd *cobra.Command, o *dispatch.Outcome) {
	mark := "✓"
	if !o.Success {
		mark = "✗"
	}
	cmd.Printf("%s %s: %s\n", mark, o.Title, o.Message)
	if o.Target.URL != "" {
		cmd.Printf("  %s %s (%s)\n", o.Platform, o.Target.URL, o.Duration.Round(time.Millisecond))
	}
}
