package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/rpcc"
	"github.com/rs/zerolog/log"

	"github.com/YangchenYe323/hapi/internal/model"
	"github.com/YangchenYe323/hapi/internal/scraper"
)

const (
	// Name of the function the relay installs in every page.
	BindingName = "__hapiRelay"

	DefaultPollInterval = time.Second
)

// Relay watches every open tab for Alt+key and reports the tab it was
// pressed in. key is a single letter or digit.
type Relay struct {
	browser  *Browser
	key      string
	interval time.Duration

	mu       sync.Mutex
	attached map[string]context.CancelFunc
}

func (b *Browser) Relay(key string, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Relay{
		browser:  b,
		key:      key,
		interval: interval,
		attached: make(map[string]context.CancelFunc),
	}
}

// Run polls for tabs until ctx is done, sending one target per shortcut press.
func (r *Relay) Run(ctx context.Context, events chan<- model.DispatchTarget) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.scan(ctx, events); err != nil {
			log.Warn().Err(err).Msg("无法获取标签页列表")
		}
		select {
		case <-ctx.Done():
			r.detachAll()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Relay) scan(ctx context.Context, events chan<- model.DispatchTarget) error {
	pages, err := r.browser.Pages(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	alive := make(map[string]bool, len(pages))
	for _, t := range pages {
		id := string(t.ID)
		alive[id] = true
		if _, ok := r.attached[id]; ok || t.WebSocketDebuggerURL == "" {
			continue
		}

		actx, cancel := context.WithCancel(ctx)
		r.attached[id] = cancel
		go func(t *devtool.Target) {
			err := r.attach(actx, t, events)
			if err != nil && actx.Err() == nil {
				log.Debug().Err(err).Str("tab", id).Msg("标签页监听结束")
			}
			r.mu.Lock()
			delete(r.attached, id)
			r.mu.Unlock()
			cancel()
		}(t)
	}

	for id, cancel := range r.attached {
		if !alive[id] {
			cancel()
		}
	}
	return nil
}

func (r *Relay) detachAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.attached {
		cancel()
	}
}

func (r *Relay) attach(ctx context.Context, t *devtool.Target, events chan<- model.DispatchTarget) error {
	conn, err := rpcc.DialContext(ctx, t.WebSocketDebuggerURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	c := cdp.NewClient(conn)

	calls, err := c.Runtime.BindingCalled(ctx)
	if err != nil {
		return err
	}
	defer calls.Close()

	if err := c.Runtime.Enable(ctx); err != nil {
		return err
	}
	if err := c.Runtime.AddBinding(ctx, runtime.NewAddBindingArgs(BindingName)); err != nil {
		return err
	}
	script := shortcutScript(r.key)
	if _, err := c.Page.AddScriptToEvaluateOnNewDocument(ctx, page.NewAddScriptToEvaluateOnNewDocumentArgs(script)); err != nil {
		return err
	}
	if _, err := c.Runtime.Evaluate(ctx, runtime.NewEvaluateArgs(script)); err != nil {
		return err
	}
	log.Debug().Str("tab", string(t.ID)).Str("url", t.URL).Msg("开始监听标签页")

	for {
		call, err := calls.Recv()
		if err != nil {
			return err
		}
		target, ok := triggerTarget(string(t.ID), call.Name, call.Payload)
		if !ok {
			continue
		}
		select {
		case events <- target:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// triggerTarget turns a binding call into a relay event.
func triggerTarget(tabID, name, payload string) (model.DispatchTarget, bool) {
	if name != BindingName {
		return model.DispatchTarget{}, false
	}
	req, err := scraper.DecodeRequest(payload)
	if err != nil {
		log.Debug().Err(err).Str("tab", tabID).Msg("忽略页面消息")
		return model.DispatchTarget{}, false
	}
	if req.Type != scraper.TypeTrigger {
		return model.DispatchTarget{}, false
	}
	return model.DispatchTarget{URL: req.URL, TabID: tabID}, true
}

// keyCode is the KeyboardEvent.code for a single letter or digit, so the
// shortcut still matches when Option changes the produced character.
func keyCode(key string) string {
	r := []rune(key)
	if len(r) != 1 {
		return ""
	}
	switch {
	case r[0] >= 'a' && r[0] <= 'z', r[0] >= 'A' && r[0] <= 'Z':
		return "Key" + string(unicode.ToUpper(r[0]))
	case r[0] >= '0' && r[0] <= '9':
		return "Digit" + string(r[0])
	}
	return ""
}

func shortcutScript(key string) string {
	key = strings.ToLower(key)
	return fmt.Sprintf(`(() => {
	if (window.__hapiShortcut) return;
	window.__hapiShortcut = true;
	window.addEventListener("keydown", (e) => {
		if (!e.altKey || e.ctrlKey || e.metaKey) return;
		if ((e.key || "").toLowerCase() !== %[1]s && e.code !== %[2]s) return;
		e.preventDefault();
		try {
			window[%[3]s](JSON.stringify({ type: %[4]s, url: location.href }));
		} catch (err) {}
	}, true);
})()`, jsString(key), jsString(keyCode(key)), jsString(BindingName), jsString(string(scraper.TypeTrigger)))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
