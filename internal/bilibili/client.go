package bilibili

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"time"
)

// A wrapper for http.Client that handles passing along default headers and credentials
// to the bilibili APIs.
type Client struct {
	HttpClient     *http.Client
	BaseURL        string
	DefaultHeaders http.Header
	Credential     *Credential
}

const (
	DefaultBaseURL = "https://api.bilibili.com"
	DefaultTimeout = 10 * time.Second

	maxBodySize = 1 << 20
)

var DefaultClient = &Client{
	HttpClient: &http.Client{Timeout: DefaultTimeout},
	BaseURL:    DefaultBaseURL,
	DefaultHeaders: http.Header{
		"User-Agent": {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
	},
}

// WithCredential returns a copy of the client that sends credential's cookies.
func (c *Client) WithCredential(credential *Credential) *Client {
	if c == nil {
		c = DefaultClient
	}
	cp := *c
	cp.Credential = credential
	return &cp
}

// WithUserAgent returns a copy of the client identifying as userAgent.
func (c *Client) WithUserAgent(userAgent string) *Client {
	if c == nil {
		c = DefaultClient
	}
	cp := *c
	if userAgent != "" {
		cp.DefaultHeaders = c.DefaultHeaders.Clone()
		if cp.DefaultHeaders == nil {
			cp.DefaultHeaders = http.Header{}
		}
		cp.DefaultHeaders.Set("User-Agent", userAgent)
	}
	return &cp
}

func (c *Client) url(path string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimSuffix(base, "/") + path
}

func (c *Client) NewRequestWithContext(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}

	maps.Copy(req.Header, c.DefaultHeaders)
	if c.Credential != nil {
		var cookies []string
		if c.Credential.SessionData != "" {
			cookies = append(cookies, fmt.Sprintf("SESSDATA=%s", c.Credential.SessionData))
		}
		if c.Credential.Buvid3 != "" {
			cookies = append(cookies, fmt.Sprintf("buvid3=%s", c.Credential.Buvid3))
		}
		if c.Credential.BiliJct != "" {
			cookies = append(cookies, fmt.Sprintf("bili_jct=%s", c.Credential.BiliJct))
		}
		if len(cookies) > 0 {
			req.Header.Set("Cookie", strings.Join(cookies, "; "))
		}
	}

	return req, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c == nil {
		c = DefaultClient
	}

	httpClient := c.HttpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return httpClient.Do(req)
}

func getJSON[T any](ctx context.Context, c *Client, path string, acceptedCodes ...int) (*T, error) {
	req, err := c.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Path: path, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	return decodeEnvelope[T](path, body, acceptedCodes...)
}
