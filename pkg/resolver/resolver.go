// Package resolver rewrites relation references inside story content
// trees into the referenced stories' documents.
package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bernardodestefano/storyblok-fast-client/pkg/stories"
)

// Prometheus metrics for resolution.
var (
	substitutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyblok_resolver_substitutions_total",
		Help: "Total relation substitutions by strategy",
	}, []string{"strategy"})

	iterationCapHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyblok_resolver_iteration_cap_hits_total",
		Help: "Times the declared-field fixed-point loop hit its iteration cap",
	})
)

// Strategy selects how relations are located in a content tree.
type Strategy string

const (
	// StrategyWholeTree substitutes any scalar matching a dictionary
	// key, anywhere in the content tree.
	StrategyWholeTree Strategy = "whole_tree"

	// StrategyDeclaredField substitutes only fields declared for a
	// component type in the RelationSpec. This is the primary strategy.
	StrategyDeclaredField Strategy = "declared_field"
)

// RelationSpec maps a component-type name to the field names whose
// values are resolvable identifiers. It is static domain configuration,
// not runtime data.
type RelationSpec map[string][]string

// Tunable termination guards. Neither loop is cycle-safe by
// construction; these caps are the termination guarantee.
const (
	// DefaultMaxDepth caps whole-tree substitution depth.
	DefaultMaxDepth = 20

	// DefaultMaxIterations caps the declared-field fixed-point loop.
	DefaultMaxIterations = 10
)

// DefaultRootField is the content field the declared-field strategy
// operates on.
const DefaultRootField = "body"

// reservedKeys are identifier fields: visited during the walk but
// never substituted, even when their value matches a dictionary key.
var reservedKeys = map[string]bool{
	"uuid": true,
	"_uid": true,
	"id":   true,
}

// Config holds resolver configuration.
type Config struct {
	Strategy  Strategy
	Relations RelationSpec

	// RootField is the content subtree the declared-field strategy
	// works on (default "body").
	RootField string

	// MaxDepth bounds whole-tree recursion (default 20).
	MaxDepth int

	// MaxIterations bounds the declared-field fixed-point loop
	// (default 10).
	MaxIterations int
}

// DefaultConfig returns the production configuration: declared-field
// strategy with the given relation table.
func DefaultConfig(relations RelationSpec) Config {
	return Config{
		Strategy:      StrategyDeclaredField,
		Relations:     relations,
		RootField:     DefaultRootField,
		MaxDepth:      DefaultMaxDepth,
		MaxIterations: DefaultMaxIterations,
	}
}

// Resolver substitutes relation references using a fixed strategy and
// a read-only dictionary.
type Resolver struct {
	config Config
	logger zerolog.Logger
}

// New creates a resolver. Zero config fields fall back to defaults.
func New(cfg Config) *Resolver {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyDeclaredField
	}
	if cfg.RootField == "" {
		cfg.RootField = DefaultRootField
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}

	return &Resolver{
		config: cfg,
		logger: log.With().Str("component", "resolver").Str("strategy", string(cfg.Strategy)).Logger(),
	}
}

// Resolve rewrites the story's content tree in place, substituting
// relation references with the referenced stories' documents, and
// returns the story. Identifiers absent from the dictionary stay as
// plain strings; resolution never fails.
func (r *Resolver) Resolve(story stories.Story, dict stories.Dictionary) stories.Story {
	if story.Content == nil {
		return story
	}

	switch r.config.Strategy {
	case StrategyWholeTree:
		r.resolveWholeTree(story, dict)
	default:
		r.resolveDeclaredFields(story, dict)
	}

	return story
}

// ResolveAll resolves every story in the list against the same
// dictionary. Resolution is strictly sequential.
func (r *Resolver) ResolveAll(list []stories.Story, dict stories.Dictionary) []stories.Story {
	for i := range list {
		list[i] = r.Resolve(list[i], dict)
	}
	return list
}
