package scoring

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/match"
	"github.com/spigell/matchmaker/internal/policy"
	"github.com/spigell/matchmaker/internal/profile"
	"github.com/spigell/matchmaker/internal/utils"
)

//go:embed prompts/compatibility.md
var promptTemplate string

const (
	systemInstruction   = "You are an experienced matchmaker assessing partner compatibility. Follow the output format exactly."
	defaultMaxLogLength = 200
)

// ErrParse means the capability answered but no score could be extracted.
var ErrParse = fmt.Errorf("%w: no integer score in response", ai.ErrMalformed)

var (
	integerRe    = regexp.MustCompile(`-?\d+`)
	outOfRe      = regexp.MustCompile(`^\s*(?:/\s*100|(?i:out\s+of\s+100))`)
	scoreLabelRe = regexp.MustCompile(`(?i)^(?:compatibility\s+|match\s+)?(?:score|rating)\s*[:=-]?$`)
)

// Observer receives one event per resolved score.
type Observer interface {
	ObserveScore(ctx context.Context, source match.Source, failure string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveScore(context.Context, match.Source, string, time.Duration) {}

// Compatibility scores a customer/candidate pair through the external
// capability and falls back to the heuristic scorer on any failure.
type Compatibility struct {
	generator ai.Generator
	fallback  *Fallback
	policy    *policy.Policy
	logger    *zap.Logger
	maxLogLen int
	observer  Observer
	now       func() time.Time
}

// NewCompatibility builds the scorer. A nil generator means the external
// capability is disabled and every pair is scored by the fallback.
func NewCompatibility(generator ai.Generator, fallback *Fallback, p *policy.Policy, log *zap.Logger, maxLogLength int) *Compatibility {
	if p == nil {
		p = policy.Default()
	}
	if fallback == nil {
		fallback = NewFallback(p)
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Compatibility{
		generator: generator,
		fallback:  fallback,
		policy:    p,
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLength,
		observer:  nopObserver{},
		now:       time.Now,
	}
}

// WithObserver attaches a metrics observer.
func (c *Compatibility) WithObserver(o Observer) *Compatibility {
	if o != nil {
		c.observer = o
	}
	return c
}

// Score never fails: external errors, timeouts and unparsable answers resolve
// to a fallback result.
func (c *Compatibility) Score(ctx context.Context, customer, candidate *profile.Profile) match.ScoreResult {
	start := time.Now()
	log := c.logger.With(logger.PairFields(customer.ID, candidate.ID)...)

	if c.generator == nil {
		res := c.fallback.Score(customer, candidate)
		c.observer.ObserveScore(ctx, res.Source, "disabled", time.Since(start))
		return res
	}

	res, err := c.assess(ctx, log, customer, candidate)
	if err != nil {
		kind := ai.KindName(err)
		log.Warn("compatibility assessment failed, using fallback scorer",
			zap.String("failure", kind),
			zap.Error(err),
		)
		res = c.fallback.Score(customer, candidate)
		c.observer.ObserveScore(ctx, res.Source, kind, time.Since(start))
		return res
	}

	if !strings.HasPrefix(res.Explanation, res.Tier.Label()) {
		log.Debug("explanation label does not match score tier",
			zap.Int("score", res.Score),
			zap.String("tier", string(res.Tier)),
		)
	}

	c.observer.ObserveScore(ctx, res.Source, "", time.Since(start))
	return res
}

func (c *Compatibility) assess(ctx context.Context, log *zap.Logger, customer, candidate *profile.Profile) (match.ScoreResult, error) {
	prompt, err := c.buildPrompt(customer, candidate)
	if err != nil {
		return match.ScoreResult{}, err
	}

	log.Debug("compatibility request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return match.ScoreResult{}, err
	}

	log.Debug("compatibility response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	score, explanation, err := ParseResponse(raw)
	if err != nil {
		return match.ScoreResult{}, ai.NewFailure(ai.ErrMalformed, err)
	}

	res := match.NewScoreResult(score, explanation, match.SourceExternal)
	if res.Explanation == "" {
		res.Explanation = res.Tier.Label()
	}
	return res, nil
}

func (c *Compatibility) buildPrompt(customer, candidate *profile.Profile) (string, error) {
	rule, err := c.policy.RuleFor(customer.Gender)
	if err != nil {
		return "", err
	}

	now := c.now()

	customerJSON, err := json.MarshalIndent(comparableFrom(customer, now), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal customer payload: %w", err)
	}

	candidateJSON, err := json.MarshalIndent(comparableFrom(candidate, now), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate payload: %w", err)
	}

	return BuildPrompt(rule.Instruction, string(customerJSON), string(candidateJSON)), nil
}

// BuildPrompt renders the compatibility template.
func BuildPrompt(instruction, customerJSON, candidateJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "{{INSTRUCTION}}\n\nCustomer A:\n{{CUSTOMER_JSON}}\n\nPotential Match B:\n{{CANDIDATE_JSON}}\n\nScore:"
	}
	prompt := strings.ReplaceAll(template, "{{INSTRUCTION}}", strings.TrimSpace(instruction))
	prompt = strings.ReplaceAll(prompt, "{{CUSTOMER_JSON}}", customerJSON)
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_JSON}}", candidateJSON)
	return prompt
}

// ParseResponse extracts the first integer in raw as the score. The
// explanation is the line holding the score with the score token removed,
// followed by any later lines. A bare "Score:" label before the number is
// dropped. The score is not clamped here.
func ParseResponse(raw string) (int, string, error) {
	cleaned := stripCodeFence(raw)

	loc := integerRe.FindStringIndex(cleaned)
	if loc == nil {
		return 0, "", ErrParse
	}

	digits := cleaned[loc[0]:loc[1]]
	score, err := strconv.Atoi(digits)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, "", ErrParse
		}
		score = match.MaxScore
		if strings.HasPrefix(digits, "-") {
			score = match.MinScore
		}
	}

	lineStart := strings.LastIndexByte(cleaned[:loc[0]], '\n') + 1
	lineEnd := len(cleaned)
	later := ""
	if nl := strings.IndexByte(cleaned[loc[1]:], '\n'); nl != -1 {
		lineEnd = loc[1] + nl
		later = strings.TrimSpace(cleaned[lineEnd+1:])
	}

	explanation := scoreLine(cleaned[lineStart:loc[0]], cleaned[loc[1]:lineEnd])
	switch {
	case explanation == "":
		explanation = later
	case later != "":
		explanation += "\n" + later
	}

	return score, explanation, nil
}

// scoreLine joins the text around the score token on its line.
func scoreLine(before, after string) string {
	if m := outOfRe.FindStringIndex(after); m != nil {
		after = after[m[1]:]
	}
	after = strings.TrimLeft(after, ")%")

	before = strings.TrimSpace(before)
	if scoreLabelRe.MatchString(before) {
		before = ""
	}
	before = strings.TrimRight(before, " (")

	if before == "" {
		return strings.TrimLeft(strings.TrimSpace(after), "%:-–. ")
	}
	return strings.TrimSpace(before + after)
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```text")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(raw, "`"))
}

// comparableProfile is the subset of a profile shared with the external capability.
// Names and contact details are left out on purpose.
type comparableProfile struct {
	Gender         profile.Gender     `json:"gender"`
	Age            int                `json:"age"`
	Income         int64              `json:"income"`
	HeightCM       float64            `json:"heightCm"`
	City           string             `json:"city,omitempty"`
	Country        string             `json:"country,omitempty"`
	MaritalStatus  string             `json:"maritalStatus,omitempty"`
	Religion       string             `json:"religion,omitempty"`
	Caste          string             `json:"caste,omitempty"`
	Languages      []string           `json:"languages,omitempty"`
	Degree         string             `json:"degree,omitempty"`
	Designation    string             `json:"designation,omitempty"`
	WantsKids      profile.Preference `json:"wantsKids,omitempty"`
	OpenToRelocate profile.Preference `json:"openToRelocate,omitempty"`
	OpenToPets     profile.Preference `json:"openToPets,omitempty"`
}

func comparableFrom(p *profile.Profile, now time.Time) comparableProfile {
	return comparableProfile{
		Gender:         p.Gender,
		Age:            p.Age(now),
		Income:         p.Income,
		HeightCM:       p.Height,
		City:           p.City,
		Country:        p.Country,
		MaritalStatus:  p.MaritalStatus,
		Religion:       p.Religion,
		Caste:          p.Caste,
		Languages:      p.Languages,
		Degree:         p.Degree,
		Designation:    p.Designation,
		WantsKids:      p.WantsKids,
		OpenToRelocate: p.OpenToRelocate,
		OpenToPets:     p.OpenToPets,
	}
}
