// Package engine runs the skillgraph pipeline: discover the catalog, build
// the relationship graph and assemble workflows, with optional result
// caching and feedback.
//
// Every call works on a single catalog snapshot, so the graph used during
// assembly always matches the entries being scored.
package engine

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillgraph/pkg/cache"
	"github.com/jingkaihe/skillgraph/pkg/graph"
	"github.com/jingkaihe/skillgraph/pkg/logger"
	"github.com/jingkaihe/skillgraph/pkg/skills"
	"github.com/jingkaihe/skillgraph/pkg/tags"
	"github.com/jingkaihe/skillgraph/pkg/telemetry"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	workflowtypes "github.com/jingkaihe/skillgraph/pkg/types/workflow"
	"github.com/jingkaihe/skillgraph/pkg/workflow"
)

// CatalogSource supplies the current catalog snapshot
type CatalogSource interface {
	Entries(ctx context.Context) ([]catalog.Entry, error)
}

// FeedbackSource supplies historical feedback for a set of skills
type FeedbackSource interface {
	ListForSkills(ctx context.Context, skillIDs []string) ([]workflowtypes.Feedback, error)
}

// ResultCache stores computed results by fingerprint
type ResultCache interface {
	Get(ctx context.Context, kind cache.Kind, fingerprint string, out any) (bool, error)
	Put(ctx context.Context, kind cache.Kind, fingerprint string, value any) error
}

// StaticSource serves a fixed list of entries
type StaticSource []catalog.Entry

// Entries returns a copy of the list
func (s StaticSource) Entries(context.Context) ([]catalog.Entry, error) {
	return append([]catalog.Entry(nil), s...), nil
}

// SkillSource discovers SKILL.md bundles on every call
type SkillSource struct {
	Config skills.Config
}

// Entries discovers skills and returns their catalog entries sorted by id
func (s SkillSource) Entries(ctx context.Context) ([]catalog.Entry, error) {
	loaded, err := skills.Load(ctx, s.Config)
	if err != nil {
		return nil, err
	}
	return skills.Entries(loaded), nil
}

// Engine runs the pipeline against injected collaborators
type Engine struct {
	source       CatalogSource
	feedback     FeedbackSource
	cache        ResultCache
	alternatives int
}

// Option configures an Engine
type Option func(*Engine)

// WithFeedback enables feedback bias from the given source
func WithFeedback(f FeedbackSource) Option {
	return func(e *Engine) {
		e.feedback = f
	}
}

// WithCache enables result caching
func WithCache(c ResultCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithAlternatives sets the default alternatives limit per step
func WithAlternatives(n int) Option {
	return func(e *Engine) {
		e.alternatives = n
	}
}

// New creates an engine reading its catalog from source
func New(source CatalogSource, opts ...Option) *Engine {
	e := &Engine{source: source}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AssembleOptions tunes a single Assemble call
type AssembleOptions struct {
	Locks map[string]string
	// Alternatives overrides the engine default when non-zero
	Alternatives int
	NoGraph      bool
	NoFeedback   bool
}

// Assembly is the outcome of Assemble along with the tag issues found
// while canonicalizing the plan
type Assembly struct {
	Result workflowtypes.Result `json:"result"`
	Issues []tags.Issue          `json:"issues"`
}

// Catalog returns the current catalog snapshot
func (e *Engine) Catalog(ctx context.Context) ([]catalog.Entry, error) {
	return telemetry.WithSpanValue(ctx, "engine.catalog", func(ctx context.Context) ([]catalog.Entry, error) {
		entries, err := e.source.Entries(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load catalog")
		}
		telemetry.SetAttributes(ctx, attribute.Int("skillgraph.entries", len(entries)))
		return entries, nil
	})
}

// Graph builds the relationship graph of the current catalog
func (e *Engine) Graph(ctx context.Context) (*catalog.Graph, error) {
	entries, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return e.buildGraph(ctx, entries)
}

func (e *Engine) buildGraph(ctx context.Context, entries []catalog.Entry) (*catalog.Graph, error) {
	return telemetry.WithSpanValue(ctx, "engine.graph", func(ctx context.Context) (*catalog.Graph, error) {
		fingerprint := e.fingerprint(ctx, entries)

		g := &catalog.Graph{}
		if e.lookup(ctx, cache.KindGraph, fingerprint, g) {
			return g, nil
		}

		g = graph.Build(entries)
		graph.Report(ctx, g)
		telemetry.SetAttributes(ctx,
			attribute.Int("skillgraph.entries", len(entries)),
			attribute.Int("skillgraph.edges", g.Metrics.EdgeCount),
			attribute.Int("skillgraph.chains", len(g.Chains)),
		)

		e.store(ctx, cache.KindGraph, fingerprint, g)
		return g, nil
	})
}

// Assemble canonicalizes the plan and maps its steps onto the current catalog
func (e *Engine) Assemble(ctx context.Context, plan workflowtypes.Plan, opts AssembleOptions) (Assembly, error) {
	return telemetry.WithSpanValue(ctx, "engine.assemble", func(ctx context.Context) (Assembly, error) {
		canonical, issues := workflow.CanonicalizePlan(plan)
		if issues == nil {
			issues = []tags.Issue{}
		}

		entries, err := e.Catalog(ctx)
		if err != nil {
			return Assembly{}, err
		}

		feedbackRecords, err := e.loadFeedback(ctx, entries, opts)
		if err != nil {
			return Assembly{}, err
		}

		wopts := workflow.Options{
			EmptyGraph:        opts.NoGraph,
			AlternativesLimit: e.alternatives,
			Locks:             opts.Locks,
			Feedback:          feedbackRecords,
		}
		if opts.Alternatives != 0 {
			wopts.AlternativesLimit = opts.Alternatives
		}

		fingerprint := e.fingerprint(ctx, entries, canonical, wopts.Locks, wopts.Feedback, wopts.AlternativesLimit, wopts.EmptyGraph)
		var cached workflowtypes.Result
		if e.lookup(ctx, cache.KindAssembly, fingerprint, &cached) {
			return Assembly{Result: cached, Issues: issues}, nil
		}

		if !opts.NoGraph {
			g, err := e.buildGraph(ctx, entries)
			if err != nil {
				return Assembly{}, err
			}
			wopts.Graph = g
		}

		result := workflow.Assemble(canonical, entries, wopts)
		telemetry.SetAttributes(ctx,
			attribute.Int("skillgraph.steps", len(result.Steps)),
			attribute.Int("skillgraph.unmet_tags", len(result.UnmetTags)),
		)
		for _, step := range result.Steps {
			log := logger.WithStep(ctx, step.StepID)
			if step.Selected == nil {
				log.WithField("missing", step.MissingTags).Debug("no skill selected")
				continue
			}
			log.WithField("skill", step.Selected.SkillID).WithField("score", step.Selected.Score).Debug("skill selected")
		}

		e.store(ctx, cache.KindAssembly, fingerprint, result)
		return Assembly{Result: result, Issues: issues}, nil
	})
}

func (e *Engine) loadFeedback(ctx context.Context, entries []catalog.Entry, opts AssembleOptions) ([]workflowtypes.Feedback, error) {
	if e.feedback == nil || opts.NoFeedback || len(entries) == 0 {
		return nil, nil
	}
	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}
	records, err := e.feedback.ListForSkills(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load feedback")
	}
	return records, nil
}

// fingerprint returns an empty string when caching is off or hashing fails
func (e *Engine) fingerprint(ctx context.Context, entries []catalog.Entry, extras ...any) string {
	if e.cache == nil {
		return ""
	}
	fp, err := cache.Fingerprint(entries, extras...)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to fingerprint inputs, skipping cache")
		return ""
	}
	return fp
}

func (e *Engine) lookup(ctx context.Context, kind cache.Kind, fingerprint string, out any) bool {
	if fingerprint == "" {
		return false
	}
	hit, err := e.cache.Get(ctx, kind, fingerprint, out)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("kind", kind).Warn("cache lookup failed")
		return false
	}
	telemetry.AddEvent(ctx, "cache", attribute.String("kind", string(kind)), attribute.Bool("hit", hit))
	return hit
}

func (e *Engine) store(ctx context.Context, kind cache.Kind, fingerprint string, value any) {
	if fingerprint == "" {
		return
	}
	if err := e.cache.Put(ctx, kind, fingerprint, value); err != nil {
		logger.G(ctx).WithError(err).WithField("kind", kind).Warn("failed to cache result")
	}
}
