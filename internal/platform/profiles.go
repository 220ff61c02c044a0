package platform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/YangchenYe323/hapi/internal/bilibili"
	"github.com/YangchenYe323/hapi/internal/model"
	"github.com/YangchenYe323/hapi/internal/scraper"
)

// Token names as they appear in a TokenSet.
const (
	TokenXmst      = "xmst"
	TokenAwemeID   = "aweme_id"
	TokenWbiImgURL = "wbi_img_url"
	TokenWbiSubURL = "wbi_sub_url"
	TokenB1        = "b1"
)

// Defaults returns the built-in profiles. bili is used to fill in what a
// bilibili page did not provide; nil disables that.
func Defaults(bili *bilibili.Client) []*Profile {
	return []*Profile{
		BilibiliProfile(bili),
		DouyinProfile(),
		XHSProfile(),
		YouTubeProfile(),
	}
}

func BilibiliProfile(bili *bilibili.Client) *Profile {
	p := &Profile{
		ID:              Bilibili,
		Name:            "哔哩哔哩",
		SpecificMarkers: []string{"b23.tv"},
		Markers:         []string{"bilibili.com"},
		CookieDomains:   []string{".bilibili.com"},
		PageCookies:     true,
		AuthCookies:     []string{"SESSDATA"},
		Tokens: &scraper.TokenStrategy{
			Type:    scraper.TypeBilibiliTokens,
			Storage: []string{TokenWbiImgURL, TokenWbiSubURL},
		},
		Fields: bilibiliFields,
	}
	if bili != nil {
		p.Enrich = func(ctx context.Context, h *Harvest) error {
			return enrichBilibili(ctx, bili, h)
		}
	}
	return p
}

func bilibiliFields(h *Harvest) model.PlatformFields {
	img, sub := h.Tokens[TokenWbiImgURL], h.Tokens[TokenWbiSubURL]
	if img == "" || sub == "" {
		return model.PlatformFields{}
	}
	wk, err := bilibili.NewWbiKeys(img, sub)
	if err != nil {
		log.Warn().Err(err).Msg("无法计算WBI密钥")
		return model.PlatformFields{}
	}
	return model.PlatformFields{WbiMixinKey: &wk.Mixin}
}

// A browser that never loaded the player lacks buvid3, and a page that never
// signed a request lacks the WBI image URLs. Both can be fetched the way the
// web client does on its first visit.
func enrichBilibili(ctx context.Context, bili *bilibili.Client, h *Harvest) error {
	client := bili.WithUserAgent(h.UserAgent).WithCredential(bilibili.CredentialFromCookies(h.Cookies))

	var errs []error
	if client.Credential.Buvid3 == "" {
		buvid, err := client.GetBuvid(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("获取buvid失败: %w", err))
		} else {
			h.Cookies = append(h.Cookies, model.CookiePair{Name: "buvid3", Value: buvid.B3})
			if client.Credential.Buvid4 == "" && buvid.B4 != "" {
				h.Cookies = append(h.Cookies, model.CookiePair{Name: "buvid4", Value: buvid.B4})
			}
			log.Debug().Str("buvid3", buvid.B3).Msg("已补全buvid")
		}
	}

	if h.Tokens[TokenWbiImgURL] == "" || h.Tokens[TokenWbiSubURL] == "" {
		img, err := client.GetWbiImage(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("获取WBI密钥失败: %w", err))
		} else {
			if h.Tokens == nil {
				h.Tokens = model.TokenSet{}
			}
			h.Tokens[TokenWbiImgURL] = img.ImgURL
			h.Tokens[TokenWbiSubURL] = img.SubURL
		}
	}

	return errors.Join(errs...)
}

func DouyinProfile() *Profile {
	return &Profile{
		ID:              Douyin,
		Name:            "抖音",
		SpecificMarkers: []string{"v.douyin.com", "iesdouyin.com"},
		Markers:         []string{"douyin.com"},
		CookieDomains:   []string{".douyin.com"},
		PageCookies:     true,
		AuthCookies:     []string{"sessionid"},
		Tokens: &scraper.TokenStrategy{
			Type:    scraper.TypeDouyinTokens,
			Storage: []string{TokenXmst},
			ActiveItem: &scraper.ActiveItemRule{
				Token:             TokenAwemeID,
				ActiveSelector:    `[data-e2e="feed-active-video"]`,
				ActiveAttribute:   "data-e2e-vid",
				CandidateSelector: `[class*="xgplayer-playclarity-setting-unique-"]`,
				ClassPattern:      `xgplayer-playclarity-setting-unique-(\d+)-\d+`,
			},
		},
		Fields: douyinFields,
	}
}

var douyinVideoPath = regexp.MustCompile(`/(?:video|note)/(\d+)`)

func douyinFields(h *Harvest) model.PlatformFields {
	fields := model.PlatformFields{
		Xmst:    h.Tokens.Get(TokenXmst),
		AwemeID: h.Tokens.Get(TokenAwemeID),
	}
	if fields.AwemeID == nil {
		fields.AwemeID = awemeIDFromURL(h.URL)
	}
	return fields
}

// A video page carries the id in its path; the feed shows a modal with
// modal_id when a video is opened from a list.
func awemeIDFromURL(rawURL string) *string {
	if m := douyinVideoPath.FindStringSubmatch(rawURL); m != nil {
		return &m[1]
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	if id := u.Query().Get("modal_id"); id != "" {
		return &id
	}
	return nil
}

func XHSProfile() *Profile {
	return &Profile{
		ID:              XHS,
		Name:            "小红书",
		SpecificMarkers: []string{"xhslink.com"},
		Markers:         []string{"xiaohongshu.com"},
		CookieDomains:   []string{".xiaohongshu.com"},
		PageCookies:     true,
		AuthCookies:     []string{"web_session"},
		Tokens: &scraper.TokenStrategy{
			Type:    scraper.TypeXhsTokens,
			Storage: []string{TokenB1},
		},
		Fields: xhsFields,
	}
}

func xhsFields(h *Harvest) model.PlatformFields {
	fields := model.PlatformFields{B1: h.Tokens.Get(TokenB1)}
	if u, err := url.Parse(h.URL); err == nil {
		if token := u.Query().Get("xsec_token"); token != "" {
			fields.XsecToken = &token
		}
	}
	return fields
}

func YouTubeProfile() *Profile {
	return &Profile{
		ID:              YouTube,
		Name:            "YouTube",
		SpecificMarkers: []string{"youtu.be"},
		Markers:         []string{"youtube.com"},
		CookieDomains:   []string{".youtube.com", ".google.com"},
		PageCookies:     true,
		AuthCookies:     []string{"SAPISID"},
	}
}
