// Package provider holds the model catalog and the per-vendor API clients.
// Everything above this package speaks in catalog model names; the vendor
// split is an implementation detail.
package provider

import "context"

// ImageInput is a normalized multimodal image attachment. The URL may be
// https://... or a data: URI.
type ImageInput struct {
	ImageURL string
}

// Usage is the provider-reported token accounting for one generation.
type Usage struct {
	InputTokens    int64
	OutputTokens   int64
	ThoughtsTokens int64
	TotalTokens    int64
}

// Generation is the raw result of a single model call. Text may legitimately
// be empty when the call itself succeeded.
type Generation struct {
	Text  string
	Usage Usage
}

// Client is a single vendor API. Generate must return an error only for call
// failures; an empty completion is a successful Generation.
type Client interface {
	Generate(ctx context.Context, model, system, user string, images []ImageInput) (*Generation, error)
}
