// Package dispatch runs one trigger-to-notification cycle: resolve the
// platform, collect credentials, post them to the collector and tell the
// user how it went.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/YangchenYe323/hapi/internal/cookie"
	"github.com/YangchenYe323/hapi/internal/delivery"
	"github.com/YangchenYe323/hapi/internal/model"
	"github.com/YangchenYe323/hapi/internal/notify"
	"github.com/YangchenYe323/hapi/internal/platform"
	"github.com/YangchenYe323/hapi/internal/scraper"
	"github.com/YangchenYe323/hapi/internal/store"
)

type State int

const (
	Idle State = iota
	ResolvingPlatform
	CollectingCredentials
	Posting
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ResolvingPlatform:
		return "resolving_platform"
	case CollectingCredentials:
		return "collecting_credentials"
	case Posting:
		return "posting"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Sender delivers a crawl request to the collector.
type Sender interface {
	Send(ctx context.Context, platform, targetURL string, req *model.CrawlRequest) (*delivery.Result, error)
}

// Notification texts.
const (
	TitleSuccess      = "请求成功"
	TitleError        = "错误"
	TitleRequestError = "请求失败"

	MessageUnsupported   = "当前页面不是受支持的平台"
	MessageNoCredentials = "未能获取到任何cookie"
)

// Bound for platform enrichment when PageTimeout is unset.
const DefaultEnrichTimeout = 5 * time.Second

type Dispatcher struct {
	Resolver *platform.Resolver
	// Optional. Without a browser only link triggers can resolve.
	Browser Browser
	// Optional. Without a store only page cookies are collected.
	Cookies  cookie.Store
	Delivery Sender
	Notifier notify.Notifier
	// Optional journal of outcomes.
	Journal store.Store

	// Used when the browser cannot report its own user agent.
	UserAgent string
	// Upper bound for page token requests. Zero means no bound.
	PageTimeout time.Duration
}

// Outcome of a finished dispatch.
type Outcome struct {
	ID       string
	Trigger  Trigger
	Target   model.DispatchTarget
	Platform platform.ID
	State    State
	Success  bool
	Err      error
	Title    string
	Message  string
	// The payload, nil when the dispatch stopped before posting.
	Request  *model.CrawlRequest
	Started  time.Time
	Duration time.Duration
}

type run struct {
	outcome *Outcome
	log     zerolog.Logger
}

func (r *run) transition(to State) {
	r.log.Debug().Stringer("from", r.outcome.State).Stringer("to", to).Msg("状态转换")
	r.outcome.State = to
}

// Dispatch runs one dispatch to completion. Every path ends in Done with
// exactly one notification; errors are reported in the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, trig Trigger) (outcome *Outcome) {
	r := &run{
		outcome: &Outcome{
			ID:      uuid.NewString(),
			Trigger: trig,
			State:   Idle,
			Started: time.Now(),
		},
	}
	r.log = log.With().Str("dispatch", r.outcome.ID).Str("trigger", string(trig.Kind)).Logger()
	ctx = r.log.WithContext(ctx)

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("分发异常")
			outcome = d.finish(ctx, r, nil, fmt.Errorf("panic: %v", p))
		}
	}()

	r.transition(ResolvingPlatform)
	tab := d.sourceTab(ctx, trig)
	target := resolveTarget(trig, tab)
	r.outcome.Target = target
	r.log.Info().Str("url", target.URL).Str("tab", target.TabID).Msg("解析目标")

	profile, err := d.Resolver.Resolve(target.URL)
	if err != nil {
		return d.finish(ctx, r, nil, err)
	}
	r.outcome.Platform = profile.ID

	r.transition(CollectingCredentials)
	var pageTab *model.DispatchTarget
	if tab != nil && tab.TabID != "" && d.samePlatform(tab.URL, profile) {
		pageTab = tab
	} else if tab != nil && trig.LinkURL != "" {
		r.log.Debug().Str("page", tab.URL).Msg("链接与当前页面平台不同，跳过页面数据")
		// The tab only hosted the link.
		target.TabID = ""
		r.outcome.Target.TabID = ""
	}
	harvest, err := d.collect(ctx, r, profile, target, pageTab)
	if err != nil {
		return d.finish(ctx, r, nil, err)
	}

	r.transition(Posting)
	req := profile.Build(harvest)
	r.outcome.Request = req
	res, err := d.Delivery.Send(ctx, string(profile.ID), target.URL, req)
	return d.finish(ctx, r, res, err)
}

func (d *Dispatcher) samePlatform(pageURL string, profile *platform.Profile) bool {
	p, err := d.Resolver.Resolve(pageURL)
	return err == nil && p.ID == profile.ID
}

// collect joins three independent tasks. The token task degrades to an
// empty set, the user agent task to the configured fallback; only the
// cookie task can fail the join.
func (d *Dispatcher) collect(ctx context.Context, r *run, profile *platform.Profile, target model.DispatchTarget, pageTab *model.DispatchTarget) (*platform.Harvest, error) {
	h := &platform.Harvest{URL: target.URL, Tokens: model.TokenSet{}}

	var sc *scraper.Scraper
	if pageTab != nil && d.Browser != nil {
		page, err := d.Browser.OpenPage(ctx, pageTab.TabID)
		if err != nil {
			r.log.Warn().Err(err).Str("tab", pageTab.TabID).Msg("无法连接到页面，将不使用页面数据")
		} else {
			defer page.Close()
			sc = scraper.New(page, profile.Tokens)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if profile.Tokens == nil {
			return nil
		}
		if sc == nil {
			r.log.Debug().Err(scraper.ErrPageContextUnreachable).Msg("没有页面上下文，令牌为空")
			return nil
		}
		tctx, cancel := d.pageContext(gctx)
		defer cancel()
		tokens, err := sc.Tokens(tctx, profile.Tokens.Type)
		if err != nil {
			r.log.Warn().Err(err).Msg("无法获取页面令牌，令牌为空")
			return nil
		}
		h.Tokens = tokens
		return nil
	})

	g.Go(func() error {
		var page cookie.FetchFunc
		if sc != nil && profile.PageCookies {
			page = func(ctx context.Context) ([]model.CookiePair, error) {
				pctx, cancel := d.pageContext(ctx)
				defer cancel()
				return sc.RawCookies(pctx)
			}
		}
		cookies, err := cookie.NewAggregator(d.Cookies).Collect(gctx, target.URL, profile.CookieDomains, page)
		if err != nil {
			return err
		}
		h.Cookies = cookies
		return nil
	})

	g.Go(func() error {
		h.UserAgent = d.UserAgent
		if d.Browser == nil {
			return nil
		}
		ua, err := d.Browser.UserAgent(gctx)
		if err != nil {
			r.log.Warn().Err(err).Msg("无法获取浏览器User-Agent，使用默认值")
			return nil
		}
		if ua != "" {
			h.UserAgent = ua
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if missing := cookie.Missing(h.Cookies, profile.AuthCookies); len(missing) > 0 {
		r.log.Warn().Strs("missing", missing).Msg("缺少登录cookie，可能未登录")
	}

	if profile.Enrich != nil {
		ectx, cancel := d.enrichContext(ctx)
		err := profile.Enrich(ectx, h)
		cancel()
		if err != nil {
			r.log.Warn().Err(err).Msg("补全凭证失败")
		}
	}

	r.log.Info().
		Int("cookies", len(h.Cookies)).
		Int("tokens", len(h.Tokens)).
		Msg("凭证收集完成")
	return h, nil
}

func (d *Dispatcher) pageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.PageTimeout > 0 {
		return context.WithTimeout(ctx, d.PageTimeout)
	}
	return context.WithCancel(ctx)
}

// enrichContext always carries a deadline; enrichment talks to remote APIs.
func (d *Dispatcher) enrichContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := d.PageTimeout
	if timeout <= 0 {
		timeout = DefaultEnrichTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (d *Dispatcher) finish(ctx context.Context, r *run, res *delivery.Result, err error) *Outcome {
	o := r.outcome
	r.transition(Done)
	o.Duration = time.Since(o.Started)
	o.Err = err
	o.Success = err == nil
	o.Title, o.Message = describe(o, res, err)

	ev := r.log.Info()
	if err != nil {
		ev = r.log.Warn().Err(err)
	}
	ev.Str("platform", string(o.Platform)).
		Bool("success", o.Success).
		Dur("duration", o.Duration).
		Str("message", o.Message).
		Msg("分发结束")

	if d.Notifier != nil {
		if nerr := d.Notifier.Notify(o.Title, o.Message); nerr != nil {
			r.log.Warn().Err(nerr).Msg("无法显示通知")
		}
	}

	if d.Journal != nil {
		if jerr := d.Journal.AddRecord(context.WithoutCancel(ctx), o.Record()); jerr != nil {
			r.log.Warn().Err(jerr).Msg("无法写入分发记录")
		}
	}

	return o
}

func describe(o *Outcome, res *delivery.Result, err error) (title, message string) {
	var derr *delivery.Error
	switch {
	case err == nil:
		if res != nil && res.Message != "" {
			return TitleSuccess, res.Message
		}
		return TitleSuccess, fmt.Sprintf("已发送%s抓取请求", o.Platform)
	case errors.Is(err, platform.ErrUnsupportedPlatform):
		return TitleError, MessageUnsupported
	case errors.Is(err, cookie.ErrNoCredentials):
		return TitleError, MessageNoCredentials
	case errors.As(err, &derr):
		return TitleRequestError, derr.UserMessage()
	}
	return TitleError, err.Error()
}

// Record is the journal entry for the outcome.
func (o *Outcome) Record() *store.Record {
	r := &store.Record{
		ID:       o.ID,
		Time:     o.Started,
		Trigger:  string(o.Trigger.Kind),
		URL:      o.Target.URL,
		Platform: string(o.Platform),
		Success:  o.Success,
		Title:    o.Title,
		Message:  o.Message,
		Duration: o.Duration,
	}
	if o.Request != nil {
		r.Cookies = len(o.Request.Cookies)
	}
	return r
}
