// Package pricing converts provider token usage into money. All arithmetic is
// fixed-point; float rounding must never leak into wallet balances.
package pricing

import (
	"github.com/shopspring/decimal"
)

const largeContextThreshold = 200_000

var (
	usdToKRW   = decimal.NewFromInt(1350)
	perMillion = decimal.NewFromInt(1_000_000)
)

// Usage is the token accounting for a single model invocation. Thoughts
// tokens are reasoning tokens some providers report separately; they bill at
// the output rate.
type Usage struct {
	InputTokens    int64
	OutputTokens   int64
	ThoughtsTokens int64
	AudioInput     bool
}

// Cost is the priced result. TotalUSD is rounded to 6 decimal places and
// TotalKRW to 2. PricingAvailable is false when the model has no price table
// entry, in which case every amount is zero.
type Cost struct {
	InputUSD         decimal.Decimal
	OutputUSD        decimal.Decimal
	TotalUSD         decimal.Decimal
	TotalKRW         decimal.Decimal
	PricingAvailable bool
}

// modelPricing holds per-million-token USD rates. Models with context-size or
// modality tiers carry the alternate input rates; zero means no tier.
type modelPricing struct {
	inputUSD       decimal.Decimal
	outputUSD      decimal.Decimal
	largeInputUSD  decimal.Decimal // input rate past the large-context threshold
	largeOutputUSD decimal.Decimal
	audioInputUSD  decimal.Decimal // input rate for audio prompts
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var priceTable = map[string]modelPricing{
	"gemini-2.5-pro": {
		inputUSD:       d("1.25"),
		outputUSD:      d("10.00"),
		largeInputUSD:  d("2.50"),
		largeOutputUSD: d("15.00"),
	},
	"gemini-2.5-flash": {
		inputUSD:      d("0.30"),
		outputUSD:     d("2.50"),
		audioInputUSD: d("1.00"),
	},
	"gemini-2.5-flash-lite": {
		inputUSD:      d("0.10"),
		outputUSD:     d("0.40"),
		audioInputUSD: d("0.30"),
	},
	"gpt-5":           {inputUSD: d("1.25"), outputUSD: d("10.00")},
	"gpt-5-mini":      {inputUSD: d("0.25"), outputUSD: d("2.00")},
	"gpt-5-nano":      {inputUSD: d("0.05"), outputUSD: d("0.40")},
	"gpt-5-codex":     {inputUSD: d("1.25"), outputUSD: d("10.00")},
	"claude-sonnet-4": {inputUSD: d("3.00"), outputUSD: d("15.00")},
	"claude-opus-4.1": {inputUSD: d("15.00"), outputUSD: d("75.00")},
}

// Known reports whether the model has a price table entry.
func Known(model string) bool {
	_, ok := priceTable[model]
	return ok
}

// Calculate prices the usage for the given model. Unknown models price to
// zero with PricingAvailable=false; callers decide whether to surface that.
func Calculate(model string, usage Usage) Cost {
	p, ok := priceTable[model]
	if !ok {
		return Cost{
			InputUSD: decimal.Zero, OutputUSD: decimal.Zero,
			TotalUSD: decimal.Zero, TotalKRW: decimal.Zero,
		}
	}

	inputRate := p.inputUSD
	outputRate := p.outputUSD
	if !p.largeInputUSD.IsZero() && usage.InputTokens > largeContextThreshold {
		inputRate = p.largeInputUSD
		outputRate = p.largeOutputUSD
	}
	if usage.AudioInput && !p.audioInputUSD.IsZero() {
		inputRate = p.audioInputUSD
	}

	inputUSD := decimal.NewFromInt(usage.InputTokens).Mul(inputRate).Div(perMillion)
	billedOutput := usage.OutputTokens + usage.ThoughtsTokens
	outputUSD := decimal.NewFromInt(billedOutput).Mul(outputRate).Div(perMillion)

	totalUSD := inputUSD.Add(outputUSD).Round(6)
	totalKRW := totalUSD.Mul(usdToKRW).Round(2)

	return Cost{
		InputUSD:         inputUSD.Round(6),
		OutputUSD:        outputUSD.Round(6),
		TotalUSD:         totalUSD,
		TotalKRW:         totalKRW,
		PricingAvailable: true,
	}
}
