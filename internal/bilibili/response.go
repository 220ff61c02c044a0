package bilibili

import (
	"fmt"
	"slices"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Every API answer is wrapped as {code, message, data}.
type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

// decodeEnvelope unwraps body from path. Only the listed codes count as
// success; none means 0. Some codes (e.g. -101 on nav) still carry data.
func decodeEnvelope[T any](path string, body []byte, accepted ...int) (*T, error) {
	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("无法解析 %s 的响应 %q: %w", path, truncate(body, 256), err)
	}

	if len(accepted) == 0 {
		accepted = []int{0}
	}
	if !slices.Contains(accepted, env.Code) {
		return nil, &APIError{Path: path, Code: env.Code, Message: env.Message}
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyData)
	}
	return env.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
