package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	jsoniter "github.com/json-iterator/go"

	"github.com/YangchenYe323/hapi/internal/bilibili"
	"github.com/YangchenYe323/hapi/internal/model"
)

func TestResolve(t *testing.T) {
	r := NewResolver(Defaults(nil)...)

	tests := []struct {
		url  string
		want ID
	}{
		{"https://www.bilibili.com/video/BV123", Bilibili},
		{"https://b23.tv/abc", Bilibili},
		{"https://space.bilibili.com/42", Bilibili},
		{"https://v.douyin.com/abc", Douyin},
		{"https://www.douyin.com/video/7300000000000000000", Douyin},
		{"https://www.xiaohongshu.com/explore/abc?xsec_token=t", XHS},
		{"http://xhslink.com/a/xyz", XHS},
		{"https://www.youtube.com/watch?v=1", YouTube},
		{"https://youtu.be/1", YouTube},
		// A generic marker appears first in the string but the specific one wins.
		{"https://www.bilibili.com/redirect?to=https://youtu.be/1", YouTube},
		{"https://www.youtube.com/redirect?q=https://b23.tv/x", Bilibili},
		{"https://www.douyin.com/share?u=xhslink.com/a", XHS},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			p, err := r.Resolve(tt.url)
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.url, err)
			}
			if p.ID != tt.want {
				t.Fatalf("Resolve(%q) = %s, want %s", tt.url, p.ID, tt.want)
			}
		})
	}
}

func TestResolveUnsupported(t *testing.T) {
	r := NewResolver(Defaults(nil)...)

	for _, u := range []string{
		"",
		"https://example.com/",
		"chrome://newtab/",
		// Matching is case-sensitive.
		"https://WWW.BILIBILI.COM/video/BV1",
	} {
		if _, err := r.Resolve(u); !errors.Is(err, ErrUnsupportedPlatform) {
			t.Fatalf("Resolve(%q) expected ErrUnsupportedPlatform, got %v", u, err)
		}
	}
}

func strPtr(s string) *string { return &s }

func TestBuildLeavesOtherFieldsNull(t *testing.T) {
	h := &Harvest{
		URL:       "https://www.douyin.com/video/7311111111111111111",
		Cookies:   []model.CookiePair{{Name: "sessionid", Value: "s"}},
		Tokens:    model.TokenSet{TokenXmst: "m"},
		UserAgent: "ua",
	}
	got := DouyinProfile().Build(h)

	want := &model.CrawlRequest{
		Cookies:   []model.CookiePair{{Name: "sessionid", Value: "s"}},
		UserAgent: "ua",
		Xmst:      strPtr("m"),
		AwemeID:   strPtr("7311111111111111111"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Build mismatch (-want +got):\n%s", diff)
	}

	b, err := jsoniter.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"wbi_mixin_key":null`, `"b1":null`, `"xsec_token":null`} {
		if !strings.Contains(string(b), field) {
			t.Fatalf("expected %s in %s", field, b)
		}
	}
}

func TestDouyinAwemeIDPriority(t *testing.T) {
	fields := douyinFields(&Harvest{
		URL:    "https://www.douyin.com/jingxuan?modal_id=222",
		Tokens: model.TokenSet{TokenAwemeID: "111"},
	})
	if fields.AwemeID == nil || *fields.AwemeID != "111" {
		t.Fatalf("page token should win, got %v", fields.AwemeID)
	}

	fields = douyinFields(&Harvest{URL: "https://www.douyin.com/jingxuan?modal_id=222"})
	if fields.AwemeID == nil || *fields.AwemeID != "222" {
		t.Fatalf("expected modal_id fallback, got %v", fields.AwemeID)
	}

	fields = douyinFields(&Harvest{URL: "https://v.douyin.com/abc"})
	if fields.AwemeID != nil || fields.Xmst != nil {
		t.Fatalf("expected no fields for a short link, got %+v", fields)
	}
}

func TestXHSFields(t *testing.T) {
	fields := xhsFields(&Harvest{
		URL:    "https://www.xiaohongshu.com/explore/abc?xsec_token=ABC%3D&xsec_source=pc_feed",
		Tokens: model.TokenSet{TokenB1: "b1v"},
	})
	if fields.B1 == nil || *fields.B1 != "b1v" {
		t.Fatalf("unexpected b1 %v", fields.B1)
	}
	if fields.XsecToken == nil || *fields.XsecToken != "ABC=" {
		t.Fatalf("unexpected xsec_token %v", fields.XsecToken)
	}
}

func TestBilibiliMixinKey(t *testing.T) {
	fields := bilibiliFields(&Harvest{Tokens: model.TokenSet{
		TokenWbiImgURL: "https://i0.hdslb.com/bfs/wbi/7cd084941338484aae1ad9425b84077c.png",
		TokenWbiSubURL: "https://i0.hdslb.com/bfs/wbi/4932caff0ff746eab6f01bf08b70ac45.png",
	}})
	if fields.WbiMixinKey == nil || *fields.WbiMixinKey != "ea1db124af3c7062474693fa704f4ff8" {
		t.Fatalf("unexpected mixin key %v", fields.WbiMixinKey)
	}

	if fields := bilibiliFields(&Harvest{Tokens: model.TokenSet{}}); fields.WbiMixinKey != nil {
		t.Fatalf("expected no mixin key without tokens")
	}
}

func TestEnrichBilibili(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/x/frontend/finger/spi":
			w.Write([]byte(`{"code":0,"data":{"b_3":"fresh3","b_4":"fresh4"}}`))
		case "/x/web-interface/nav":
			w.Write([]byte(`{"code":0,"data":{"wbi_img":{"img_url":"https://i0.hdslb.com/bfs/wbi/a.png","sub_url":"https://i0.hdslb.com/bfs/wbi/b.png"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := BilibiliProfile(&bilibili.Client{HttpClient: srv.Client(), BaseURL: srv.URL})
	h := &Harvest{
		URL:     "https://www.bilibili.com/video/BV123",
		Cookies: []model.CookiePair{{Name: "SESSDATA", Value: "xyz"}},
	}
	if err := p.Enrich(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCookies := []model.CookiePair{
		{Name: "SESSDATA", Value: "xyz"},
		{Name: "buvid3", Value: "fresh3"},
		{Name: "buvid4", Value: "fresh4"},
	}
	if diff := cmp.Diff(wantCookies, h.Cookies); diff != "" {
		t.Fatalf("cookies mismatch (-want +got):\n%s", diff)
	}
	if h.Tokens[TokenWbiImgURL] != "https://i0.hdslb.com/bfs/wbi/a.png" {
		t.Fatalf("wbi image url not filled: %v", h.Tokens)
	}

	// Nothing is fetched when the page already provided everything.
	paths = nil
	h = &Harvest{
		Cookies: []model.CookiePair{{Name: "buvid3", Value: "q1"}},
		Tokens:  model.TokenSet{TokenWbiImgURL: "x", TokenWbiSubURL: "y"},
	}
	if err := p.Enrich(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no requests, got %v", paths)
	}
}
