package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"content-targeting-engine/internal/cache"
	"content-targeting-engine/internal/glossary"
	"content-targeting-engine/internal/observability"
)

// Source loads the full content bundle a snapshot is built from.
type Source interface {
	LoadBundle(ctx context.Context) (Bundle, error)
}

type snapshot struct {
	version string
	builtAt time.Time

	bundle  Bundle
	tagMap  map[string]Tag
	terms   *glossary.TermMapCache
	scanner *glossary.Scanner
}

// SnapshotInfo describes the snapshot currently served. Replaced, the
// version a snapshot superseded, is only reported by Install.
type SnapshotInfo struct {
	Version      string         `json:"version"`
	BuiltAt      time.Time      `json:"builtAt"`
	Counts       map[string]int `json:"counts"`
	Triggers     int            `json:"triggers"`
	ScanPatterns int            `json:"scanPatterns"`
	Replaced     string         `json:"replaced,omitempty"`
}

// Options tune snapshot compilation.
type Options struct {
	WholeWordTerms bool
}

// TargetingEngine exposes read-only, lock-free match operations over the
// last successfully built snapshot.
type TargetingEngine struct {
	eval *Evaluator
	opts Options
	snap cache.Snapshot[*snapshot]
}

// NewEngine returns an engine with an empty snapshot.
func NewEngine(eval *Evaluator, opts Options) *TargetingEngine {
	if eval == nil {
		eval = defaultEvaluator
	}
	e := &TargetingEngine{eval: eval, opts: opts}
	e.Install(Bundle{})
	return e
}

// Evaluator returns the evaluator the engine matches with.
func (e *TargetingEngine) Evaluator() *Evaluator { return e.eval }

// BuildSnapshot loads a bundle from src and swaps it in. On error the
// previous snapshot keeps serving.
func (e *TargetingEngine) BuildSnapshot(ctx context.Context, src Source) error {
	b, err := src.LoadBundle(ctx)
	if err != nil {
		observability.SnapshotBuilds.WithLabelValues("error").Inc()
		return fmt.Errorf("load bundle: %w", err)
	}
	info := e.Install(b)
	log.Info().
		Str("version", info.Version).
		Int("banners", info.Counts[KindBanner]).
		Int("plays", info.Counts[KindPlay]).
		Int("tag_rules", info.Counts[KindTagRule]).
		Int("content", info.Counts["content"]).
		Int("glossary", info.Counts["glossary"]).
		Int("triggers", info.Triggers).
		Str("replaced", info.Replaced).
		Msg("snapshot built")
	return nil
}

// Install compiles b into a new snapshot and swaps it in.
func (e *TargetingEngine) Install(b Bundle) SnapshotInfo {
	terms := glossary.BuildTermMapCache(b.Glossary)
	s := &snapshot{
		version: uuid.NewString(),
		builtAt: time.Now().UTC(),
		bundle:  b,
		tagMap:  TagMap(b.ContentTags),
		terms:   terms,
		scanner: glossary.NewScanner(terms, glossary.ScannerOptions{WholeWords: e.opts.WholeWordTerms}),
	}
	prev, hadPrev := e.snap.Swap(s)

	info := s.info()
	if hadPrev {
		info.Replaced = prev.version
	}
	observability.SnapshotBuilds.WithLabelValues("ok").Inc()
	for kind, n := range info.Counts {
		observability.SnapshotItems.WithLabelValues(kind).Set(float64(n))
	}
	observability.TermMapSize.Set(float64(info.Triggers))
	return info
}

func (s *snapshot) info() SnapshotInfo {
	return SnapshotInfo{
		Version: s.version,
		BuiltAt: s.builtAt,
		Counts: map[string]int{
			KindBanner:  len(s.bundle.Banners),
			KindPlay:    len(s.bundle.Plays),
			KindTagRule: len(s.bundle.TagRules),
			"content":   len(s.bundle.RecommendedContent),
			"tags":      len(s.bundle.ContentTags),
			"glossary":  len(s.terms.EntriesByID),
		},
		Triggers:     s.terms.Len(),
		ScanPatterns: s.scanner.Patterns(),
	}
}

func (e *TargetingEngine) current() *snapshot {
	s, _ := e.snap.Load()
	return s
}

// Info describes the current snapshot.
func (e *TargetingEngine) Info() SnapshotInfo { return e.current().info() }

// Version identifies the current snapshot.
func (e *TargetingEngine) Version() string { return e.current().version }

// MatchBanners matches the snapshot's banners.
func (e *TargetingEngine) MatchBanners(_ context.Context, rec Record, ctx Context) []Rule {
	return e.eval.MatchRules(e.current().bundle.Banners, rec, ctx)
}

// MatchPlays matches the snapshot's plays.
func (e *TargetingEngine) MatchPlays(_ context.Context, rec Record, ctx Context) []Rule {
	return e.eval.MatchRules(e.current().bundle.Plays, rec, ctx)
}

// Recommend runs the recommendation pass over the snapshot's tag rules and content.
func (e *TargetingEngine) Recommend(_ context.Context, rec Record, ctx Context) Recommendations {
	s := e.current()
	active := e.eval.activeTags(s.bundle.TagRules, rec, ctx)
	return Recommendations{
		Recommendations: e.eval.matchContent(s.bundle.RecommendedContent, active, s.tagMap, rec, ctx),
		ActiveTags:      active.list(),
		TagMap:          s.tagMap,
	}
}

// Terms returns the snapshot's term map cache.
func (e *TargetingEngine) Terms() *glossary.TermMapCache { return e.current().terms }

// LookupTerm resolves a glossary trigger.
func (e *TargetingEngine) LookupTerm(trigger string) (glossary.Entry, bool) {
	return e.current().terms.Lookup(trigger)
}

// ScanTerms finds glossary triggers in text.
func (e *TargetingEngine) ScanTerms(text string) []glossary.Hit {
	return e.current().scanner.Scan(text)
}
