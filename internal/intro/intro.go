// Package intro writes the short introduction a matchmaker sends along with a
// suggested match.
package intro

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/profile"
	"github.com/spigell/matchmaker/internal/utils"
)

//go:embed prompts/intro.md
var promptTemplate string

const (
	systemInstruction = "You are a professional matchmaker writing friendly introductions."
	maxWords          = 100
)

// Observer receives one event per generated intro.
type Observer interface {
	ObserveIntro(ctx context.Context, fallback bool, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveIntro(context.Context, bool, time.Duration) {}

type Generator struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
	observer  Observer
	now       func() time.Time
}

// NewGenerator returns an intro generator. With a nil ai.Generator every intro
// comes from the static template.
func NewGenerator(generator ai.Generator, log *zap.Logger, maxLogLength int) *Generator {
	if maxLogLength <= 0 {
		maxLogLength = 200
	}
	return &Generator{
		generator: generator,
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLength,
		observer:  nopObserver{},
		now:       time.Now,
	}
}

func (g *Generator) WithObserver(o Observer) *Generator {
	if o != nil {
		g.observer = o
	}
	return g
}

// Generate never fails. Any external failure degrades to Template.
func (g *Generator) Generate(ctx context.Context, customer, candidate *profile.Profile) string {
	start := time.Now()

	if g.generator != nil {
		text, err := g.external(ctx, customer, candidate)
		if err == nil {
			g.observer.ObserveIntro(ctx, false, time.Since(start))
			return text
		}
		g.logger.Warn("intro generation failed, using template",
			append(logger.PairFields(customer.ID, candidate.ID),
				zap.String("failure", ai.KindName(err)),
				zap.Error(err),
			)...,
		)
	}

	g.observer.ObserveIntro(ctx, true, time.Since(start))
	return Template(customer, candidate, g.now())
}

func (g *Generator) external(ctx context.Context, customer, candidate *profile.Profile) (string, error) {
	prompt, err := buildPrompt(customer, candidate, g.now())
	if err != nil {
		return "", err
	}

	g.logger.Debug("intro request",
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	text, err := g.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ai.NewFailure(ai.ErrMalformed, fmt.Errorf("empty intro"))
	}

	g.logger.Debug("intro response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, g.maxLogLen)),
	)

	return limitWords(text, maxWords), nil
}

type introProfile struct {
	FirstName   string   `json:"firstName"`
	Age         int      `json:"age"`
	City        string   `json:"city,omitempty"`
	Designation string   `json:"designation,omitempty"`
	Company     string   `json:"company,omitempty"`
	Languages   []string `json:"languages,omitempty"`
}

func buildPrompt(customer, candidate *profile.Profile, now time.Time) (string, error) {
	customerJSON, err := json.MarshalIndent(introFrom(customer, now), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal customer: %w", err)
	}
	candidateJSON, err := json.MarshalIndent(introFrom(candidate, now), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate: %w", err)
	}

	r := strings.NewReplacer(
		"{{CUSTOMER_NAME}}", displayName(customer),
		"{{CANDIDATE_NAME}}", displayName(candidate),
		"{{CUSTOMER_JSON}}", string(customerJSON),
		"{{CANDIDATE_JSON}}", string(candidateJSON),
	)
	return r.Replace(promptTemplate), nil
}

func introFrom(p *profile.Profile, now time.Time) introProfile {
	return introProfile{
		FirstName:   p.FirstName,
		Age:         p.Age(now),
		City:        p.City,
		Designation: p.Designation,
		Company:     p.Company,
		Languages:   p.Languages,
	}
}

// Template is the static intro used when the external capability is unavailable.
func Template(customer, candidate *profile.Profile, now time.Time) string {
	return fmt.Sprintf(
		"Hi %s, meet %s, %d, %s based in %s. Given your background as %s (%d) in %s, we think the two of you have a lot to talk about.",
		displayName(customer),
		displayName(candidate), candidate.Age(now), withArticle(occupation(candidate)), orUnknown(candidate.City),
		withArticle(occupation(customer)), customer.Age(now), orUnknown(customer.City),
	)
}

func displayName(p *profile.Profile) string {
	if name := strings.TrimSpace(p.FirstName); name != "" {
		return name
	}
	return "there"
}

func occupation(p *profile.Profile) string {
	if d := strings.TrimSpace(p.Designation); d != "" {
		return d
	}
	return "professional"
}

func withArticle(s string) string {
	if s == "" {
		return s
	}
	switch strings.ToLower(s[:1]) {
	case "a", "e", "i", "o", "u":
		return "an " + s
	default:
		return "a " + s
	}
}

func orUnknown(city string) string {
	if c := strings.TrimSpace(city); c != "" {
		return c
	}
	return "your area"
}

func limitWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[:limit], " ") + "..."
}
