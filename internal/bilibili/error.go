package bilibili

import (
	"errors"
	"fmt"
)

// Code returned by the nav endpoint when the request carries no valid SESSDATA.
const CodeNotLoggedIn = -101

var ErrEmptyData = errors.New("响应中没有数据")

// APIError is an envelope whose code the caller did not accept.
type APIError struct {
	Path    string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s 返回错误 %d: %s", e.Path, e.Code, e.Message)
}

// StatusError is a non-200 answer that never reached the envelope, e.g. a
// rate-limit page served by the CDN.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s 返回HTTP状态 %d", e.Path, e.Status)
}
