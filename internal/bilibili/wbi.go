package bilibili

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Keys used by the web client to sign WBI requests. The page caches the two
// image URLs in local storage under wbi_img_url and wbi_sub_url.
type WbiKeys struct {
	ImgKey string `json:"img_key"`
	SubKey string `json:"sub_key"`
	Mixin  string `json:"mixin"`
}

type WbiImage struct {
	ImgURL string `json:"img_url"`
	SubURL string `json:"sub_url"`
}

// NewWbiKeys derives the keys from the two image URLs, e.g.
// https://i0.hdslb.com/bfs/wbi/7cd084941338484aae1ad9425b84077c.png
func NewWbiKeys(imgURL, subURL string) (*WbiKeys, error) {
	wk := &WbiKeys{
		ImgKey: keyFromURL(imgURL),
		SubKey: keyFromURL(subURL),
	}
	if len(wk.ImgKey)+len(wk.SubKey) < len(mixinKeyEncTab) {
		return nil, fmt.Errorf("invalid wbi image urls: %q, %q", imgURL, subURL)
	}
	wk.mixin()
	return wk, nil
}

func keyFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	base := path.Base(u)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func (wk *WbiKeys) mixin() {
	var mixin [32]byte
	wbi := wk.ImgKey + wk.SubKey
	for i := range mixin {
		mixin[i] = wbi[mixinKeyEncTab[i]]
	}
	wk.Mixin = string(mixin[:])
}

var mixinKeyEncTab = [...]int{
	46, 47, 18, 2, 53, 8, 23, 32,
	15, 50, 10, 31, 58, 3, 45, 35,
	27, 43, 5, 49, 33, 9, 42, 19,
	29, 28, 14, 39, 12, 38, 41, 13,
	37, 48, 7, 16, 24, 55, 40, 61,
	26, 17, 0, 1, 60, 51, 30, 4,
	22, 25, 54, 21, 56, 59, 6, 63,
	57, 62, 11, 36, 20, 34, 44, 52,
}

// GetWbiImage reads the current WBI image URLs from the nav endpoint. The
// endpoint answers -101 for anonymous requests but still carries the URLs.
func (c *Client) GetWbiImage(ctx context.Context) (*WbiImage, error) {
	type navData struct {
		WbiImg WbiImage `json:"wbi_img"`
	}

	data, err := getJSON[navData](ctx, c, "/x/web-interface/nav", 0, CodeNotLoggedIn)
	if err != nil {
		return nil, err
	}
	if data.WbiImg.ImgURL == "" || data.WbiImg.SubURL == "" {
		return nil, fmt.Errorf("empty image or sub url: %+v", data.WbiImg)
	}
	return &data.WbiImg, nil
}
