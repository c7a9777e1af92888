package critic

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmylchreest/propcheck/pkg/extractor"
	"github.com/jmylchreest/propcheck/pkg/llm"
	"github.com/jmylchreest/propcheck/pkg/report"
)

type fakeProvider struct {
	content string
	err     error
	req     llm.Request
}

func (p *fakeProvider) Execute(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.req = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.content}, nil
}
func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-model" }

func sampleRecord(t *testing.T) *report.PropertyRecord {
	t.Helper()
	price, sqm := 500000, 100.0
	pt, tenure := extractor.SemiDetached, extractor.Freehold
	address := "Main Street, Tiddington, CV37 7AN"
	b := &report.Builder{Now: func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }}
	return b.Build(report.Inputs{Fields: &extractor.Fields{
		Address:      &address,
		Price:        &price,
		SquareMeters: &sqm,
		PropertyType: &pt,
		Tenure:       &tenure,
	}})
}

// --- Prompt Tests ---

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleRecord(t))

	for _, want := range []string{
		"- Address: Main Street, Tiddington, CV37 7AN",
		"- Price: £500,000",
		"- Price per sqm: £5,000/sqm",
		"- Property Type: semi-detached",
		"- ONS Valuation: £490,000",
		"- Last Sale Price: £400,000 (2020)",
		"- Growth Since Last Sale: 25%",
		"- Value for Money Score: 7/10",
		"- SDLT: £12,500",
		"- Total Purchase Costs: £14,600",
		"- Average for semi-detached: £600,000",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q\n%s", want, prompt)
		}
	}
}

func TestBuildPrompt_UnknownType(t *testing.T) {
	r := sampleRecord(t)
	r.PropertyType = ""
	prompt := BuildPrompt(r)
	if !strings.Contains(prompt, "- Property Type: unknown") {
		t.Error("expected unknown property type")
	}
	if !strings.Contains(prompt, "- Average for unknown: £0") {
		t.Error("expected zero postcode average for unknown type")
	}
}

// --- ParseVerdict Tests ---

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		verdict string
		wantRec Recommendation
	}{
		{"plain json", `{"analysis":"Overpriced.","recommendation":"DON'T_BUY"}`, "Overpriced.", DontBuy},
		{"fenced", "```json\n{\"analysis\":\"Solid.\",\"recommendation\":\"BUY\"}\n```", "Solid.", Buy},
		{"prose around json", `Here you go: {"analysis":"Meh.","recommendation":"neutral"} hope that helps`, "Meh.", Neutral},
		{"no json", "Just buy it.", "Just buy it.", Neutral},
		{"broken json", `{"analysis": "cut off`, `{"analysis": "cut off`, Neutral},
		{"missing analysis", `{"recommendation":"BUY"}`, `{"recommendation":"BUY"}`, Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseVerdict(tt.content)
			if v.OverallVerdict != tt.verdict {
				t.Errorf("expected verdict %q, got %q", tt.verdict, v.OverallVerdict)
			}
			if v.Recommendation != tt.wantRec {
				t.Errorf("expected %s, got %s", tt.wantRec, v.Recommendation)
			}
		})
	}
}

func TestNormalizeRecommendation(t *testing.T) {
	tests := map[string]Recommendation{
		"BUY":        Buy,
		" buy ":      Buy,
		"DON'T_BUY":  DontBuy,
		"don't buy":  DontBuy,
		"DONT-BUY":   DontBuy,
		"do not buy": DontBuy,
		"don’t buy":  DontBuy,
		"NEUTRAL":    Neutral,
		"maybe":      Neutral,
		"":           Neutral,
	}
	for in, want := range tests {
		if got := NormalizeRecommendation(in); got != want {
			t.Errorf("NormalizeRecommendation(%q): expected %s, got %s", in, want, got)
		}
	}
}

// --- RiskFactors Tests ---

func TestRiskFactors(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		risks := RiskFactors(sampleRecord(t))
		if risks == nil || len(risks) != 0 {
			t.Errorf("expected empty non-nil risks, got %v", risks)
		}
	})

	t.Run("all", func(t *testing.T) {
		r := sampleRecord(t)
		r.Price = 600000
		r.History.GrowthSinceLastSale = 4
		r.ValueForMoney = 5

		risks := RiskFactors(r)
		want := []string{
			"Property is priced 20% above average valuations",
			"Modest growth of only 4% since last sale",
			"Below average value for money score",
		}
		if len(risks) != len(want) {
			t.Fatalf("expected %d risks, got %v", len(want), risks)
		}
		for i := range want {
			if risks[i] != want[i] {
				t.Errorf("risk %d: expected %q, got %q", i, want[i], risks[i])
			}
		}
	})

	t.Run("at threshold", func(t *testing.T) {
		r := sampleRecord(t)
		r.Price = 550000 // exactly 10% above
		if risks := RiskFactors(r); len(risks) != 0 {
			t.Errorf("expected no risks at 10%%, got %v", risks)
		}
	})
}

// --- Verdict Tests ---

func TestVerdict(t *testing.T) {
	p := &fakeProvider{content: `{"analysis":"Fair price for the area.","recommendation":"BUY"}`}
	r := sampleRecord(t)
	r.ValueForMoney = 3

	v, err := New(p).Verdict(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.OverallVerdict != "Fair price for the area." || v.Recommendation != Buy {
		t.Errorf("unexpected verdict %+v", v)
	}
	if len(v.RiskFactors) != 1 || v.RiskFactors[0] != "Below average value for money score" {
		t.Errorf("unexpected risks %v", v.RiskFactors)
	}
	if len(p.req.Messages) != 2 || p.req.Messages[0].Role != llm.RoleSystem {
		t.Fatalf("expected system and user messages, got %+v", p.req.Messages)
	}
	if !strings.Contains(p.req.Messages[1].Content, "£500,000") {
		t.Error("expected record in user prompt")
	}
}

func TestVerdict_Errors(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		_, err := New(nil).Verdict(context.Background(), sampleRecord(t))
		if !errors.Is(err, ErrNoProvider) {
			t.Errorf("expected ErrNoProvider, got %v", err)
		}
	})

	t.Run("nil record", func(t *testing.T) {
		if _, err := New(&fakeProvider{}).Verdict(context.Background(), nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		cause := errors.New("rate limited")
		_, err := New(&fakeProvider{err: cause}).Verdict(context.Background(), sampleRecord(t))
		if !errors.Is(err, cause) {
			t.Errorf("expected wrapped cause, got %v", err)
		}
	})
}
