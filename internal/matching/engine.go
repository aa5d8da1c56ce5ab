package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/matchmaker/internal/filtering"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/match"
	"github.com/spigell/matchmaker/internal/profile"
)

const defaultHistoryLimit = 50

// Scorer resolves a compatibility score. Implementations must not fail.
type Scorer interface {
	Score(ctx context.Context, customer, candidate *profile.Profile) match.ScoreResult
}

// IntroWriter produces the introduction attached to a retained match.
type IntroWriter interface {
	Generate(ctx context.Context, customer, candidate *profile.Profile) string
}

// Observer receives one event per suggestion run.
type Observer interface {
	ObserveRun(ctx context.Context, outcome string, candidates, retained int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRun(context.Context, string, int, int, time.Duration) {}

type Config struct {
	PoolLimit int
	// Concurrency bounds in-flight scoring and intro calls. Zero means PoolLimit.
	Concurrency int
	Intro       bool
}

type Engine struct {
	selector    *Selector
	scorer      Scorer
	intros      IntroWriter
	filters     []filtering.Filter
	suggestions match.Store
	cfg         Config
	logger      *zap.Logger
	observer    Observer

	now   func() time.Time
	newID func() string
}

// NewEngine wires the orchestrator. filters must already be validated; ids
// they exclude unconditionally are pushed down into the selector.
// A nil intros disables intro generation regardless of cfg.Intro.
func NewEngine(selector *Selector, scorer Scorer, intros IntroWriter, filters []filtering.Filter, suggestions match.Store, cfg Config, log *zap.Logger) *Engine {
	if cfg.PoolLimit <= 0 {
		cfg.PoolLimit = DefaultPoolLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = cfg.PoolLimit
	}

	selector.Exclude(filtering.ExcludedIDs(filters)...)

	return &Engine{
		selector:    selector,
		scorer:      scorer,
		intros:      intros,
		filters:     filters,
		suggestions: suggestions,
		cfg:         cfg,
		logger:      logger.WithFields(log),
		observer:    nopObserver{},
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (e *Engine) WithObserver(o Observer) *Engine {
	if o != nil {
		e.observer = o
	}
	return e
}

// Suggest runs one matching round for the customer and returns the retained
// candidates ordered by score, highest first. Either every returned
// suggestion is persisted or the call fails and nothing is.
func (e *Engine) Suggest(ctx context.Context, customerID string) ([]match.Ranked, error) {
	start := time.Now()
	log := e.logger.With(zap.String(logger.FieldCustomer, customerID))

	ranked, candidates, err := e.suggest(ctx, log, customerID)

	outcome := "ok"
	if err != nil {
		outcome = outcomeFor(err)
	}
	e.observer.ObserveRun(ctx, outcome, candidates, len(ranked), time.Since(start))

	return ranked, err
}

func (e *Engine) suggest(ctx context.Context, log *zap.Logger, customerID string) ([]match.Ranked, int, error) {
	customer, err := e.selector.Customer(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}

	candidates, err := e.selector.Select(ctx, customer, e.cfg.PoolLimit)
	if err != nil {
		return nil, 0, err
	}

	log.Info("candidates selected", zap.Int("candidates", len(candidates)))

	scored := e.score(ctx, customer, candidates)

	// Every scoring call has resolved at this point, but a cancelled caller
	// gets nothing persisted.
	if err := ctx.Err(); err != nil {
		return nil, len(candidates), fmt.Errorf("suggestions for %s: %w", customerID, err)
	}

	retained, err := filtering.Run(ctx, filtering.Deps{Logger: log}, e.filters, scored)
	if err != nil {
		return nil, len(candidates), fmt.Errorf("filter candidates: %w", err)
	}

	sort.SliceStable(retained, func(i, j int) bool {
		return retained[i].Result.Score > retained[j].Result.Score
	})

	if e.cfg.Intro && e.intros != nil {
		e.introduce(ctx, customer, retained)
		if err := ctx.Err(); err != nil {
			return nil, len(candidates), fmt.Errorf("suggestions for %s: %w", customerID, err)
		}
	}

	ranked := e.rank(customer, retained)
	if len(ranked) == 0 {
		log.Info("no candidates retained")
		return ranked, len(candidates), nil
	}

	records := make([]*match.Suggestion, len(ranked))
	for i := range ranked {
		records[i] = &ranked[i].Suggestion
	}

	if err := e.suggestions.InsertAll(ctx, records); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, len(candidates), fmt.Errorf("suggestions for %s: %w", customerID, ctxErr)
		}
		return nil, len(candidates), storeError("persist suggestions", err)
	}

	log.Info("suggestions stored",
		zap.Int("candidates", len(candidates)),
		zap.Int("retained", len(ranked)),
	)

	return ranked, len(candidates), nil
}

// score fans out one scoring call per candidate and waits for all of them.
// Results are written by index so completion order never matters.
func (e *Engine) score(ctx context.Context, customer *profile.Profile, candidates []*profile.Profile) []match.Scored {
	scored := make([]match.Scored, len(candidates))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	for i, candidate := range candidates {
		g.Go(func() error {
			scored[i] = match.Scored{
				Candidate: match.Candidate{Customer: customer, Profile: candidate, Position: i},
				Result:    e.scorer.Score(ctx, customer, candidate),
			}
			return nil
		})
	}

	_ = g.Wait()
	return scored
}

func (e *Engine) introduce(ctx context.Context, customer *profile.Profile, retained []match.Scored) {
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	for i := range retained {
		g.Go(func() error {
			retained[i].Intro = e.intros.Generate(ctx, customer, retained[i].Profile)
			return nil
		})
	}

	_ = g.Wait()
}

func (e *Engine) rank(customer *profile.Profile, retained []match.Scored) []match.Ranked {
	createdAt := e.now().UTC()
	ranked := make([]match.Ranked, 0, len(retained))
	for _, s := range retained {
		ranked = append(ranked, match.Ranked{
			Suggestion: match.Suggestion{
				ID:          e.newID(),
				CustomerID:  customer.ID,
				CandidateID: s.Profile.ID,
				Score:       s.Result.Score,
				Explanation: s.Result.Explanation,
				CreatedAt:   createdAt,
			},
			CandidateName: s.Profile.FullName(),
			Tier:          s.Result.Tier,
			Source:        s.Result.Source,
			Intro:         s.Intro,
		})
	}
	return ranked
}

// History lists persisted suggestions for an existing customer, newest first.
func (e *Engine) History(ctx context.Context, customerID string, limit int) ([]*match.Suggestion, error) {
	if _, err := e.selector.Customer(ctx, customerID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	list, err := e.suggestions.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, storeError("list suggestions", err)
	}
	return list, nil
}
