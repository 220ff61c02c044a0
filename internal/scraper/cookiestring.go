package scraper

import (
	"strings"

	"github.com/YangchenYe323/hapi/internal/cookie"
	"github.com/YangchenYe323/hapi/internal/model"
)

// ParseCookieString splits a document.cookie string into pairs, keeping
// the page's order. Values may contain '=' so each entry is split once, and
// are decoded the same way as values read from the cookie store.
func ParseCookieString(raw string) []model.CookiePair {
	var cookies []model.CookiePair
	for _, part := range strings.Split(raw, ";") {
		name, value, _ := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies = append(cookies, model.CookiePair{
			Name:  name,
			Value: cookie.DecodeValue(strings.TrimSpace(value)),
		})
	}
	return cookies
}
