// Package scraper reads tokens and identifiers that only the page itself
// can see: local storage, DOM state and document.cookie.
//
// The page side is Handle, which answers typed requests and never fails
// across the channel. The caller side is Tokens and RawCookies, which turn
// an unsuccessful answer into ErrPageContextUnreachable.
package scraper

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/YangchenYe323/hapi/internal/model"
)

// Page evaluates a JavaScript expression in a page and decodes its
// JSON-serializable result into out.
type Page interface {
	Evaluate(ctx context.Context, expression string, out any) error
}

// How a platform's tokens are fetched from the page.
type TokenStrategy struct {
	Type RequestType
	// Local storage keys, each copied to the token of the same name.
	Storage []string
	// Optional active item lookup.
	ActiveItem *ActiveItemRule
}

type ActiveItemRule struct {
	// Token name the chosen id is stored under.
	Token string
	// Element the page marks as active and the attribute holding its id.
	ActiveSelector  string
	ActiveAttribute string
	// Elements to consider when no active element is marked, and a pattern
	// with one capture group extracting the id from their class name.
	CandidateSelector string
	ClassPattern      string
}

type activeSnapshot struct {
	Direct     *string     `json:"direct"`
	Candidates []Candidate `json:"candidates"`
	Viewport   float64     `json:"viewport"`
}

type Scraper struct {
	page       Page
	strategies map[RequestType]*TokenStrategy
}

func New(page Page, strategies ...*TokenStrategy) *Scraper {
	s := &Scraper{
		page:       page,
		strategies: make(map[RequestType]*TokenStrategy, len(strategies)),
	}
	for _, st := range strategies {
		if st != nil {
			s.strategies[st.Type] = st
		}
	}
	return s
}

// Handle answers a single request. Failures, including panics, are reported
// in the response.
func (s *Scraper) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("type", string(req.Type)).Msg("页面请求处理异常")
			resp = Response{Success: false, Error: fmt.Sprint(r)}
		}
	}()

	switch req.Type {
	case TypeRawCookies:
		cookies, err := s.rawCookies(ctx)
		if err != nil {
			return failure(err)
		}
		return Response{Success: true, Cookies: cookies}
	case TypeTrigger:
		return Response{Success: true}
	}

	st, ok := s.strategies[req.Type]
	if !ok {
		return failure(fmt.Errorf("%w: %s", ErrUnknownRequest, req.Type))
	}
	tokens, err := s.tokens(ctx, st)
	if err != nil {
		return failure(err)
	}
	return Response{Success: true, Tokens: tokens}
}

// Tokens requests the token set for typ. A nil error always comes with a
// non-nil (possibly empty) set.
func (s *Scraper) Tokens(ctx context.Context, typ RequestType) (model.TokenSet, error) {
	resp := s.Handle(ctx, Request{Type: typ})
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrPageContextUnreachable, resp.Error)
	}
	if resp.Tokens == nil {
		return model.TokenSet{}, nil
	}
	return resp.Tokens, nil
}

// RawCookies requests the page's document.cookie as pairs.
func (s *Scraper) RawCookies(ctx context.Context) ([]model.CookiePair, error) {
	resp := s.Handle(ctx, Request{Type: TypeRawCookies})
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrPageContextUnreachable, resp.Error)
	}
	return resp.Cookies, nil
}

func (s *Scraper) rawCookies(ctx context.Context) ([]model.CookiePair, error) {
	if s.page == nil {
		return nil, ErrPageContextUnreachable
	}
	var raw string
	if err := s.page.Evaluate(ctx, rawCookieScript, &raw); err != nil {
		return nil, err
	}
	return ParseCookieString(raw), nil
}

func (s *Scraper) tokens(ctx context.Context, st *TokenStrategy) (model.TokenSet, error) {
	if s.page == nil {
		return nil, ErrPageContextUnreachable
	}

	tokens := model.TokenSet{}

	if len(st.Storage) > 0 {
		var values map[string]*string
		if err := s.page.Evaluate(ctx, storageScript(st.Storage), &values); err != nil {
			return nil, err
		}
		for k, v := range values {
			if v != nil && *v != "" {
				tokens[k] = *v
			}
		}
	}

	if rule := st.ActiveItem; rule != nil {
		var snap activeSnapshot
		if err := s.page.Evaluate(ctx, activeItemScript(rule), &snap); err != nil {
			return nil, err
		}
		if snap.Direct != nil && *snap.Direct != "" {
			tokens[rule.Token] = *snap.Direct
		} else if id, ok := PickActive(snap.Candidates, snap.Viewport); ok {
			tokens[rule.Token] = id
		}
		log.Trace().
			Str("token", rule.Token).
			Int("candidates", len(snap.Candidates)).
			Str("value", tokens[rule.Token]).
			Msg("活动元素识别")
	}

	return tokens, nil
}
