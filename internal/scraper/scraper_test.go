package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/YangchenYe323/hapi/internal/model"
)

// fakePage answers evaluations with canned JSON chosen by what the
// expression does.
type fakePage struct {
	storage string
	active  string
	cookie  string
	err     error
	panics  bool
	calls   []string
}

func (p *fakePage) Evaluate(ctx context.Context, expression string, out any) error {
	p.calls = append(p.calls, expression)
	if p.panics {
		panic("page went away")
	}
	if p.err != nil {
		return p.err
	}
	var body string
	switch {
	case expression == rawCookieScript:
		body = p.cookie
	case strings.Contains(expression, "localStorage"):
		body = p.storage
	case strings.Contains(expression, "getBoundingClientRect"):
		body = p.active
	default:
		return errors.New("unexpected expression")
	}
	return json.UnmarshalFromString(body, out)
}

var douyinStrategy = &TokenStrategy{
	Type:    TypeDouyinTokens,
	Storage: []string{"xmst"},
	ActiveItem: &ActiveItemRule{
		Token:             "aweme_id",
		ActiveSelector:    `[data-e2e="feed-active-video"]`,
		ActiveAttribute:   "data-e2e-vid",
		CandidateSelector: `[class*="xgplayer-playclarity-setting-unique-"]`,
		ClassPattern:      `xgplayer-playclarity-setting-unique-(\d+)-\d+`,
	},
}

func TestTokensPrefersDirectAttribute(t *testing.T) {
	page := &fakePage{
		storage: `{"xmst":"tok"}`,
		active:  `{"direct":"111","candidates":[{"id":"222","top":0,"bottom":100}],"viewport":800}`,
	}
	s := New(page, douyinStrategy)

	tokens, err := s.Tokens(context.Background(), TypeDouyinTokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := model.TokenSet{"xmst": "tok", "aweme_id": "111"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokensFallsBackToCandidates(t *testing.T) {
	page := &fakePage{
		storage: `{"xmst":null}`,
		active: `{"direct":null,"viewport":800,"candidates":[
			{"id":"1","top":-500,"bottom":-100},
			{"id":"2","top":100,"bottom":700},
			{"id":"3","top":900,"bottom":1500}
		]}`,
	}
	s := New(page, douyinStrategy)

	tokens, err := s.Tokens(context.Background(), TypeDouyinTokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := model.TokenSet{"aweme_id": "2"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokensEmptyPage(t *testing.T) {
	page := &fakePage{
		storage: `{"xmst":null}`,
		active:  `{"direct":null,"candidates":[],"viewport":800}`,
	}
	tokens, err := New(page, douyinStrategy).Tokens(context.Background(), TypeDouyinTokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens == nil || len(tokens) != 0 {
		t.Fatalf("expected empty non-nil token set, got %#v", tokens)
	}
}

func TestHandleNeverPanics(t *testing.T) {
	s := New(&fakePage{panics: true}, douyinStrategy)

	resp := s.Handle(context.Background(), Request{Type: TypeDouyinTokens})
	if resp.Success {
		t.Fatalf("expected failure")
	}
	if resp.Error != "page went away" {
		t.Fatalf("unexpected error text %q", resp.Error)
	}
}

func TestTokensUnreachable(t *testing.T) {
	cases := map[string]*Scraper{
		"evaluate error": New(&fakePage{err: errors.New("target closed")}, douyinStrategy),
		"no page":        New(nil, douyinStrategy),
		"unknown type":   New(&fakePage{}),
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Tokens(context.Background(), TypeDouyinTokens)
			if !errors.Is(err, ErrPageContextUnreachable) {
				t.Fatalf("expected ErrPageContextUnreachable, got %v", err)
			}
		})
	}
}

func TestRawCookies(t *testing.T) {
	page := &fakePage{cookie: `"a=1; b=x=y; a=2"`}
	cookies, err := New(page).RawCookies(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.CookiePair{{Name: "a", Value: "1"}, {Name: "b", Value: "x=y"}, {Name: "a", Value: "2"}}
	if diff := cmp.Diff(want, cookies); diff != "" {
		t.Fatalf("cookies mismatch (-want +got):\n%s", diff)
	}
}

func TestTriggerRequest(t *testing.T) {
	req, err := DecodeRequest(`{"type":"TRIGGER","url":"https://www.douyin.com/"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page := &fakePage{}
	resp := New(page).Handle(context.Background(), *req)
	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Error)
	}
	if len(page.calls) != 0 {
		t.Fatalf("trigger must not touch the page, got %d evaluations", len(page.calls))
	}

	if _, err := DecodeRequest(`{}`); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest, got %v", err)
	}
}

func TestStorageScriptQuotesKeys(t *testing.T) {
	script := storageScript([]string{"wbi_img_url", `we"ird`})
	if !strings.Contains(script, `["wbi_img_url","we\"ird"]`) {
		t.Fatalf("keys not embedded as a JS array literal:\n%s", script)
	}
}
