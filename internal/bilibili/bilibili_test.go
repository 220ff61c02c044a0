package bilibili

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/YangchenYe323/hapi/internal/model"
)

func TestNewWbiKeys(t *testing.T) {
	wk, err := NewWbiKeys(
		"https://i0.hdslb.com/bfs/wbi/7cd084941338484aae1ad9425b84077c.png",
		"https://i0.hdslb.com/bfs/wbi/4932caff0ff746eab6f01bf08b70ac45.png?x=1",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wk.ImgKey != "7cd084941338484aae1ad9425b84077c" {
		t.Fatalf("unexpected img key %q", wk.ImgKey)
	}
	if wk.SubKey != "4932caff0ff746eab6f01bf08b70ac45" {
		t.Fatalf("unexpected sub key %q", wk.SubKey)
	}
	if wk.Mixin != "ea1db124af3c7062474693fa704f4ff8" {
		t.Fatalf("unexpected mixin key %q", wk.Mixin)
	}

	if _, err := NewWbiKeys("", "https://i0.hdslb.com/bfs/wbi/short.png"); err == nil {
		t.Fatalf("expected error for short keys")
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{HttpClient: srv.Client(), BaseURL: srv.URL}
}

func TestGetBuvid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/x/frontend/finger/spi" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Write([]byte(`{"code":0,"message":"ok","data":{"b_3":"B3-infoc","b_4":"B4-infoc"}}`))
	}).WithUserAgent("test-agent")

	buvid, err := c.GetBuvid(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buvid.B3 != "B3-infoc" || buvid.B4 != "B4-infoc" {
		t.Fatalf("unexpected buvid %+v", buvid)
	}
}

func TestGetBuvidAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":-412,"message":"请求被拦截"}`))
	})

	_, err := c.GetBuvid(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != -412 || apiErr.Path != "/x/frontend/finger/spi" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestGetBuvidHTTPStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
		w.Write([]byte(`<html>blocked</html>`))
	})

	_, err := c.GetBuvid(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusPreconditionFailed {
		t.Fatalf("unexpected status %d", statusErr.Status)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	if _, err := decodeEnvelope[Buvid]("/p", []byte(`{"code":0,"message":"0"}`)); !errors.Is(err, ErrEmptyData) {
		t.Fatalf("expected ErrEmptyData, got %v", err)
	}
	if _, err := decodeEnvelope[Buvid]("/p", []byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
	data, err := decodeEnvelope[Buvid]("/p", []byte(`{"code":-101,"data":{"b_3":"x"}}`), 0, CodeNotLoggedIn)
	if err != nil || data.B3 != "x" {
		t.Fatalf("unexpected result %+v, %v", data, err)
	}
}

func TestDefaultClientHasTimeout(t *testing.T) {
	c := DefaultClient.WithUserAgent("ua").WithCredential(nil)
	if c.HttpClient == nil || c.HttpClient.Timeout != DefaultTimeout {
		t.Fatalf("expected a bounded http client, got %+v", c.HttpClient)
	}
}

func TestGetWbiImageAnonymous(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Cookie"); got != "SESSDATA=abc; buvid3=q1" {
			t.Errorf("unexpected cookie header %q", got)
		}
		w.Write([]byte(`{"code":-101,"message":"账号未登录","data":{"isLogin":false,"wbi_img":{"img_url":"https://i0.hdslb.com/bfs/wbi/a.png","sub_url":"https://i0.hdslb.com/bfs/wbi/b.png"}}}`))
	}).WithCredential(CredentialFromCookies([]model.CookiePair{
		{Name: "SESSDATA", Value: "abc"},
		{Name: "buvid3", Value: "q1"},
	}))

	img, err := c.GetWbiImage(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.ImgURL != "https://i0.hdslb.com/bfs/wbi/a.png" || img.SubURL != "https://i0.hdslb.com/bfs/wbi/b.png" {
		t.Fatalf("unexpected wbi image %+v", img)
	}
}

func TestCredentialFromCookies(t *testing.T) {
	cred := CredentialFromCookies([]model.CookiePair{
		{Name: "SESSDATA", Value: "s"},
		{Name: "bili_jct", Value: "j"},
		{Name: "DedeUserID", Value: "42"},
		{Name: "other", Value: "x"},
	})
	if cred.SessionData != "s" {
		t.Fatalf("unexpected SESSDATA %q", cred.SessionData)
	}
	if cred.BiliJct != "j" || cred.DedeUserID != "42" || cred.Buvid3 != "" {
		t.Fatalf("unexpected credential %+v", cred)
	}
	if got := CredentialFromCookies(nil); *got != (Credential{}) {
		t.Fatalf("expected empty credential, got %+v", got)
	}
}
