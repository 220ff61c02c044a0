package scraper

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/YangchenYe323/hapi/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RequestType tags a request sent over the page channel.
type RequestType string

const (
	TypeBilibiliTokens RequestType = "BILI_GET_TOKENS"
	TypeDouyinTokens   RequestType = "DY_GET_TOKENS"
	TypeXhsTokens      RequestType = "XHS_GET_TOKENS"
	TypeRawCookies     RequestType = "GET_RAW_COOKIES"
	// Sent by the page itself when the user presses the shortcut.
	TypeTrigger RequestType = "TRIGGER"
)

type Request struct {
	Type RequestType `json:"type"`
	URL  string      `json:"url,omitempty"`
}

type Response struct {
	Success bool               `json:"success"`
	Error   string             `json:"error,omitempty"`
	Tokens  model.TokenSet     `json:"tokens,omitempty"`
	Cookies []model.CookiePair `json:"cookies,omitempty"`
}

var (
	// The page could not answer: no page, a failed evaluation, or {success:false}.
	ErrPageContextUnreachable = errors.New("无法连接到页面上下文")
	ErrUnknownRequest         = errors.New("未知的请求类型")
)

// DecodeRequest parses a request delivered as a JSON string, e.g. through
// a runtime binding.
func DecodeRequest(payload string) (*Request, error) {
	var req Request
	if err := json.UnmarshalFromString(payload, &req); err != nil {
		return nil, fmt.Errorf("无法解析页面请求 %q: %w", payload, err)
	}
	if req.Type == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, payload)
	}
	return &req, nil
}

func failure(err error) Response {
	return Response{Success: false, Error: err.Error()}
}
