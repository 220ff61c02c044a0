package bilibili

import "github.com/YangchenYe323/hapi/internal/model"

type Credential struct {
	SessionData     string `json:"sess_data"`
	BiliJct         string `json:"bili_jct"`
	DedeUserID      string `json:"dede_userid"`
	DedeUserIDCkMd5 string `json:"dede_userid_ck_md5"`
	Buvid3          string `json:"buvid3"`
	Buvid4          string `json:"buvid4"`
}

// CredentialFromCookies picks the bilibili login cookies out of a merged set.
func CredentialFromCookies(cookies []model.CookiePair) *Credential {
	var c Credential
	for _, cookie := range cookies {
		switch cookie.Name {
		case "SESSDATA":
			c.SessionData = cookie.Value
		case "bili_jct":
			c.BiliJct = cookie.Value
		case "DedeUserID":
			c.DedeUserID = cookie.Value
		case "DedeUserID__ckMd5":
			c.DedeUserIDCkMd5 = cookie.Value
		case "buvid3":
			c.Buvid3 = cookie.Value
		case "buvid4":
			c.Buvid4 = cookie.Value
		}
	}
	return &c
}
