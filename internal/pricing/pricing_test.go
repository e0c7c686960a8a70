package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateKnownModels(t *testing.T) {
	cases := []struct {
		name    string
		model   string
		usage   Usage
		wantUSD string
		wantKRW string
	}{
		{
			name:    "flash basic",
			model:   "gemini-2.5-flash",
			usage:   Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
			wantUSD: "2.80",
			wantKRW: "3780.00",
		},
		{
			name:    "pro small context",
			model:   "gemini-2.5-pro",
			usage:   Usage{InputTokens: 100_000, OutputTokens: 10_000},
			wantUSD: "0.225",
			wantKRW: "303.75",
		},
		{
			name:    "pro large context uses higher tier",
			model:   "gemini-2.5-pro",
			usage:   Usage{InputTokens: 300_000, OutputTokens: 10_000},
			wantUSD: "0.90",
			wantKRW: "1215.00",
		},
		{
			name:    "thoughts billed as output",
			model:   "gpt-5-mini",
			usage:   Usage{InputTokens: 0, OutputTokens: 1000, ThoughtsTokens: 1000},
			wantUSD: "0.004",
			wantKRW: "5.40",
		},
		{
			name:    "flash audio input tier",
			model:   "gemini-2.5-flash",
			usage:   Usage{InputTokens: 1_000_000, AudioInput: true},
			wantUSD: "1.00",
			wantKRW: "1350.00",
		},
		{
			name:    "zero usage",
			model:   "claude-opus-4.1",
			usage:   Usage{},
			wantUSD: "0",
			wantKRW: "0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate(tc.model, tc.usage)
			if !got.PricingAvailable {
				t.Fatalf("pricing unexpectedly unavailable for %s", tc.model)
			}
			if !got.TotalUSD.Equal(decimal.RequireFromString(tc.wantUSD)) {
				t.Fatalf("TotalUSD = %s, want %s", got.TotalUSD, tc.wantUSD)
			}
			if !got.TotalKRW.Equal(decimal.RequireFromString(tc.wantKRW)) {
				t.Fatalf("TotalKRW = %s, want %s", got.TotalKRW, tc.wantKRW)
			}
		})
	}
}

func TestCalculateTierBoundary(t *testing.T) {
	// Exactly at the threshold prices at the small-context rate; one token
	// over flips to the large-context rate.
	at := Calculate("gemini-2.5-pro", Usage{InputTokens: 200_000})
	over := Calculate("gemini-2.5-pro", Usage{InputTokens: 200_001})
	if !at.TotalUSD.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("at threshold = %s, want 0.25", at.TotalUSD)
	}
	if !over.TotalUSD.GreaterThan(at.TotalUSD.Mul(decimal.NewFromInt(1))) {
		t.Fatalf("over threshold should cost more: %s", over.TotalUSD)
	}
	if !over.TotalUSD.Equal(decimal.RequireFromString("0.500003")) {
		t.Fatalf("over threshold = %s, want 0.500003", over.TotalUSD)
	}
}

func TestCalculateUnknownModel(t *testing.T) {
	got := Calculate("totally-made-up", Usage{InputTokens: 5000, OutputTokens: 100})
	if got.PricingAvailable {
		t.Fatalf("expected pricing unavailable")
	}
	if !got.TotalUSD.IsZero() || !got.TotalKRW.IsZero() {
		t.Fatalf("unknown model must price to zero, got %s / %s", got.TotalUSD, got.TotalKRW)
	}
	if Known("totally-made-up") {
		t.Fatalf("Known must be false for unlisted models")
	}
}
