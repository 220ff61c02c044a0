package scraper

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/YangchenYe323/hapi/internal/model"
)

func TestParseCookieString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []model.CookiePair
	}{
		{name: "empty", raw: "", want: nil},
		{
			name: "simple",
			raw:  "SESSDATA=abc; buvid3=q1",
			want: []model.CookiePair{{Name: "SESSDATA", Value: "abc"}, {Name: "buvid3", Value: "q1"}},
		},
		{
			name: "value with equals",
			raw:  "token=a=b==",
			want: []model.CookiePair{{Name: "token", Value: "a=b=="}},
		},
		{
			name: "whitespace and empty names",
			raw:  " ; =orphan;  k =  v  ;;",
			want: []model.CookiePair{{Name: "k", Value: "v"}},
		},
		{
			name: "percent-encoded value",
			raw:  "SESSDATA=a1b2%2C1735689600%2Cc3d4; bad=%zz",
			want: []model.CookiePair{{Name: "SESSDATA", Value: "a1b2,1735689600,c3d4"}, {Name: "bad", Value: "%zz"}},
		},
		{
			name: "no value",
			raw:  "flag",
			want: []model.CookiePair{{Name: "flag", Value: ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCookieString(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ParseCookieString(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestPickActive(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		want       string
		ok         bool
	}{
		{name: "none", ok: false},
		{
			name: "closest visible to centre",
			candidates: []Candidate{
				{ID: "top", Top: 0, Bottom: 100},
				{ID: "mid", Top: 350, Bottom: 450},
				{ID: "low", Top: 600, Bottom: 800},
			},
			want: "mid", ok: true,
		},
		{
			name: "tie goes to earlier",
			candidates: []Candidate{
				{ID: "a", Top: 300, Bottom: 400},
				{ID: "b", Top: 400, Bottom: 500},
			},
			want: "a", ok: true,
		},
		{
			name: "partially visible ignored",
			candidates: []Candidate{
				{ID: "cut", Top: 350, Bottom: 900},
				{ID: "edge", Top: 0, Bottom: 50},
			},
			want: "edge", ok: true,
		},
		{
			name: "median when none visible",
			candidates: []Candidate{
				{ID: "c", Top: 1600, Bottom: 2400},
				{ID: "a", Top: -800, Bottom: -10},
				{ID: "b", Top: 400, Bottom: 1200},
			},
			want: "b", ok: true,
		},
		{
			name: "lower median for even count",
			candidates: []Candidate{
				{ID: "b", Top: 700, Bottom: 1500},
				{ID: "a", Top: -900, Bottom: -100},
			},
			want: "a", ok: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickActive(tt.candidates, 800)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("PickActive() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
