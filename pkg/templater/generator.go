package templater

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("laman/templater")

// Generator wraps Generate with a shared random source for use from many
// goroutines.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator returns a Generator seeded with seed. Use a fixed seed in
// tests for reproducible output.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
}

// WithClock overrides the clock used for the footer year
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a page for input
func (g *Generator) Generate(ctx context.Context, input Input) Output {
	_, span := tracer.Start(ctx, "Templater.Generate",
		trace.WithAttributes(
			attribute.String("template.style", input.Style),
			attribute.Int("prompt.length", len(input.Prompt)),
		),
	)
	defer span.End()

	out := g.generate(input)

	span.SetAttributes(
		attribute.String("template.resolved_style", string(out.Style)),
		attribute.Int("sections", len(out.Sections)),
	)
	return out
}

func (g *Generator) generate(input Input) Output {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Generate(input, g.rng, g.now())
}
