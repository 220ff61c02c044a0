package bilibili

import (
	"context"
)

type Buvid struct {
	B3 string `json:"b_3"`
	B4 string `json:"b_4"`
}

// GetBuvid asks for a fresh device id pair, the same one the web player
// receives on its first visit.
func (c *Client) GetBuvid(ctx context.Context) (*Buvid, error) {
	return getJSON[Buvid](ctx, c, "/x/frontend/finger/spi")
}
