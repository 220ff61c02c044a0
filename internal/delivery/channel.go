// Package delivery sends a crawl request to the local collector and
// classifies its answer.
package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/YangchenYe323/hapi/internal/model"
)

const (
	DefaultEndpoint = "http://127.0.0.1:39002"
	// Shown when the collector gave no message of its own.
	GenericFailureMessage = "无法连接到本地服务器，请确保服务器已启动"

	maxResponseSize = 1 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error is a failed delivery: either a non-2xx status or a transport error.
type Error struct {
	Status  int    // 0 when no response was received
	Message string // message field of the response body, if any
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("delivery failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("collector returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("collector returned %d", e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the text to show for the failure.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericFailureMessage
}

type Result struct {
	Status  int
	Message string
}

type Channel struct {
	Endpoint   string
	HttpClient *http.Client
}

func New(endpoint string, client *http.Client) *Channel {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Channel{Endpoint: strings.TrimSuffix(endpoint, "/"), HttpClient: client}
}

// TargetURL is the collector URL for a platform and target page.
func (c *Channel) TargetURL(platform, targetURL string) string {
	return c.Endpoint + "/start-crawl/" + platform + "/" + EncodeURIComponent(targetURL)
}

// Send POSTs req once. There are no retries.
func (c *Channel) Send(ctx context.Context, platform, targetURL string, req *model.CrawlRequest) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("无法编码请求: %w", err)}
	}

	endpoint := c.TargetURL(platform, targetURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept-Encoding", "br")

	log.Debug().Str("endpoint", endpoint).Int("bytes", len(body)).Msg("发送抓取请求")

	resp, err := c.HttpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		log.Warn().Err(err).Int("status", resp.StatusCode).Msg("无法读取响应")
	}
	message := messageOf(respBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: message}
	}
	return &Result{Status: resp.StatusCode, Message: message}, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "br") {
		r = brotli.NewReader(r)
	}
	return io.ReadAll(io.LimitReader(r, maxResponseSize))
}

func messageOf(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	msg := gjson.GetBytes(body, "message")
	if msg.Type != gjson.String {
		return ""
	}
	return msg.String()
}
