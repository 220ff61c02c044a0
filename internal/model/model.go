// Package model holds the values that flow through a single dispatch.
package model

// A single cookie as forwarded to the collector.
type CookiePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Optional page-derived fields keyed by their payload name.
// An absent key means the field is unknown to the page.
type TokenSet map[string]string

// Get returns a pointer to the value for key, or nil if absent or empty.
func (t TokenSet) Get(key string) *string {
	v, ok := t[key]
	if !ok || v == "" {
		return nil
	}
	return &v
}

// The payload POSTed to the collector. Optional fields are always
// serialized and stay null unless the resolved platform fills them.
type CrawlRequest struct {
	Cookies     []CookiePair `json:"cookies"`
	UserAgent   string       `json:"userAgent"`
	Xmst        *string      `json:"xmst"`
	AwemeID     *string      `json:"aweme_id"`
	WbiMixinKey *string      `json:"wbi_mixin_key"`
	B1          *string      `json:"b1"`
	XsecToken   *string      `json:"xsec_token"`
}

// PlatformFields are the platform-specific optional fields of a CrawlRequest.
type PlatformFields struct {
	Xmst        *string
	AwemeID     *string
	WbiMixinKey *string
	B1          *string
	XsecToken   *string
}

// NewCrawlRequest assembles the payload once. The cookie slice is copied so
// later changes by the caller do not leak into the request.
func NewCrawlRequest(cookies []CookiePair, userAgent string, fields PlatformFields) *CrawlRequest {
	return &CrawlRequest{
		Cookies:     append([]CookiePair(nil), cookies...),
		UserAgent:   userAgent,
		Xmst:        fields.Xmst,
		AwemeID:     fields.AwemeID,
		WbiMixinKey: fields.WbiMixinKey,
		B1:          fields.B1,
		XsecToken:   fields.XsecToken,
	}
}

// The page a dispatch works on. TabID is empty when no browser tab is
// associated with the URL.
type DispatchTarget struct {
	URL   string `json:"url"`
	TabID string `json:"tab_id"`
}
