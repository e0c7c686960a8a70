// Package invoke runs model generations with per-model retry and cross-model
// fallback, so one flaky vendor does not fail the whole message.
package invoke

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brenlab/bren-backend/internal/ai/provider"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

const (
	primaryTries  = 3
	fallbackTries = 2
	baseBackoff   = 250 * time.Millisecond
	maxBackoff    = 2 * time.Second
)

// Resolver maps a catalog model name to a vendor client and wire id.
type Resolver interface {
	ForModel(model string) (provider.Client, string, error)
}

// Request is one generation to run against the fallback chain.
type Request struct {
	PreferredModel string
	System         string
	User           string
	Images         []provider.ImageInput
}

// Result reports the generation and which model actually produced it.
// FallbackUsed is true when the answering model is not the first candidate.
type Result struct {
	Model        string
	Text         string
	Usage        provider.Usage
	FallbackUsed bool
	Attempts     int
}

// ExhaustedError means every candidate model failed. AllTransient
// distinguishes "everyone was overloaded, retry later" from hard failures.
type ExhaustedError struct {
	Attempts     int
	AllTransient bool
	LastErr      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all models failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

type Invoker struct {
	log      *logger.Logger
	resolver Resolver
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewInvoker(resolver Resolver, log *logger.Logger) *Invoker {
	return &Invoker{
		log:      log.With("service", "Invoker"),
		resolver: resolver,
		sleep:    sleepCtx,
	}
}

// Run tries the preferred model first, then the default fallback chain in
// order. Transient failures retry the same model with exponential backoff;
// terminal failures skip straight to the next candidate. An empty completion
// from a successful call is a success.
func (inv *Invoker) Run(ctx context.Context, req Request) (*Result, error) {
	candidates := candidateChain(req.PreferredModel)
	attempts := 0
	allTransient := true
	var lastErr error

	for ci, model := range candidates {
		tries := fallbackTries
		if ci == 0 {
			tries = primaryTries
		}
		client, wireID, err := inv.resolver.ForModel(model)
		if err != nil {
			lastErr = err
			allTransient = false
			inv.log.Warn("model unavailable", "model", model, "reason", err.Error())
			continue
		}
		for try := 0; try < tries; try++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			attempts++
			gen, err := client.Generate(ctx, wireID, req.System, req.User, req.Images)
			if err == nil {
				return &Result{
					Model:        model,
					Text:         gen.Text,
					Usage:        gen.Usage,
					FallbackUsed: ci > 0,
					Attempts:     attempts,
				}, nil
			}
			lastErr = err
			transient := isTransient(err)
			if !transient {
				allTransient = false
				inv.log.Warn("model failed, moving to next candidate",
					"model", model, "attempt", attempts, "error", err.Error())
				break
			}
			inv.log.Warn("transient model failure",
				"model", model, "attempt", attempts, "error", err.Error())
			if try < tries-1 {
				if err := inv.sleep(ctx, backoffFor(try)); err != nil {
					return nil, err
				}
			}
		}
	}
	return nil, &ExhaustedError{Attempts: attempts, AllTransient: allTransient, LastErr: lastErr}
}

// candidateChain prepends the preferred model to the default fallback order,
// deduplicated, preserving order.
func candidateChain(preferred string) []string {
	var chain []string
	seen := map[string]bool{}
	add := func(m string) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			return
		}
		seen[m] = true
		chain = append(chain, m)
	}
	add(preferred)
	for _, m := range provider.DefaultFallbackOrder {
		add(m)
	}
	return chain
}

var transientMarkers = []string{
	"overloaded",
	"rate limit",
	"rate_limit",
	"resource exhausted",
	"resource_exhausted",
	"429",
	"503",
	"502",
	"unavailable",
	"timeout",
	"deadline exceeded",
	"connection reset",
	"temporarily",
}

// isTransient classifies failures by error text. Vendor SDKs disagree on
// error shapes, so the match is intentionally loose: when unsure we treat
// the failure as terminal and move to the next model rather than burn
// retries.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func backoffFor(try int) time.Duration {
	d := baseBackoff << uint(try)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
