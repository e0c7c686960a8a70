package provider

const (
	VendorGoogle    = "google"
	VendorOpenAI    = "openai"
	VendorAnthropic = "anthropic"
)

// ModelInfo maps a catalog model name to the vendor that serves it.
type ModelInfo struct {
	Name   string
	Vendor string
}

var catalog = map[string]ModelInfo{
	"gemini-2.5-pro":        {Name: "gemini-2.5-pro", Vendor: VendorGoogle},
	"gemini-2.5-flash":      {Name: "gemini-2.5-flash", Vendor: VendorGoogle},
	"gemini-2.5-flash-lite": {Name: "gemini-2.5-flash-lite", Vendor: VendorGoogle},
	"gpt-5":                 {Name: "gpt-5", Vendor: VendorOpenAI},
	"gpt-5-mini":            {Name: "gpt-5-mini", Vendor: VendorOpenAI},
	"gpt-5-nano":            {Name: "gpt-5-nano", Vendor: VendorOpenAI},
	"gpt-5-codex":           {Name: "gpt-5-codex", Vendor: VendorOpenAI},
	"claude-sonnet-4":       {Name: "claude-sonnet-4-20250514", Vendor: VendorAnthropic},
	"claude-opus-4.1":       {Name: "claude-opus-4-1-20250805", Vendor: VendorAnthropic},
}

// DefaultFallbackOrder is the chain tried when a preferred model fails or no
// preference is given. Ordered strongest to cheapest.
var DefaultFallbackOrder = []string{
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

// Lookup resolves a catalog model name. The returned Name is the vendor's
// wire id, which may differ from the catalog name.
func Lookup(model string) (ModelInfo, bool) {
	info, ok := catalog[model]
	return info, ok
}

// Supported lists catalog model names, for request validation.
func Supported() []string {
	out := make([]string, 0, len(catalog))
	for name := range catalog {
		out = append(out, name)
	}
	return out
}
