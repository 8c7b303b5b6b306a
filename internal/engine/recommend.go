package engine

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// RecommendationInput groups what the recommendation matcher reads.
type RecommendationInput struct {
	TagRules           []TagRule     `json:"tagRules"`
	RecommendedContent []ContentItem `json:"recommendedContent"`
	ContentTags        []Tag         `json:"contentTags"`
}

// EnrichedItem is a matched content item with its tags resolved.
type EnrichedItem struct {
	ContentItem
	Tags          []Tag    `json:"tags"`
	MatchedTagIDs []string `json:"matchedTagIds,omitempty"`
}

// Recommendations is the result of a recommendation pass.
type Recommendations struct {
	Recommendations []EnrichedItem `json:"recommendations"`
	ActiveTags      []string       `json:"activeTags"`
	TagMap          map[string]Tag `json:"tagMap"`
}

func (e *Evaluator) matchesDirectConditions(item ContentItem, rec Record, ctx Context) bool {
	if item.DisplayOnAll {
		return true
	}
	if !item.Gates.allows(ctx) {
		return false
	}
	// Unlike a bare rule, an item without conditions only surfaces through tags.
	if !item.Criteria.hasConditions() {
		return false
	}
	return e.EvaluateRule(item.Criteria, rec)
}

func matchedTags(item ContentItem, active *tagSet) []string {
	var out []string
	for _, id := range item.TagIDs {
		if active.has(id) {
			out = append(out, id)
		}
	}
	return out
}

// MatchContent returns enabled items matched through an active tag or their
// own conditions, ordered by priority then title.
func (e *Evaluator) MatchContent(items []ContentItem, activeTags []string, tags map[string]Tag, rec Record, ctx Context) []EnrichedItem {
	active := newTagSet()
	for _, id := range activeTags {
		active.add(id)
	}
	return e.matchContent(items, active, tags, rec, ctx)
}

func (e *Evaluator) matchContent(items []ContentItem, active *tagSet, tags map[string]Tag, rec Record, ctx Context) []EnrichedItem {
	out := make([]EnrichedItem, 0)
	for _, item := range items {
		if !isEnabled(item.Enabled) {
			continue
		}
		hits := matchedTags(item, active)
		if len(hits) == 0 && !e.matchesDirectConditions(item, rec, ctx) {
			continue
		}
		out = append(out, EnrichedItem{
			ContentItem:   item,
			Tags:          resolveTags(item.TagIDs, tags),
			MatchedTagIDs: hits,
		})
	}

	col := collate.New(language.Und)
	slices.SortStableFunc(out, func(a, b EnrichedItem) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return col.CompareString(a.Title, b.Title)
	})
	return out
}

func resolveTags(ids []string, tags map[string]Tag) []Tag {
	out := make([]Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := tags[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// TagMap indexes tags by id. Later duplicates win.
func TagMap(tags []Tag) map[string]Tag {
	m := make(map[string]Tag, len(tags))
	for _, t := range tags {
		m[t.ID] = t
	}
	return m
}

// GetRecommendations activates tags from the tag rules, then matches the
// recommended content against them and against each item's own conditions.
func (e *Evaluator) GetRecommendations(in RecommendationInput, rec Record, ctx Context) Recommendations {
	active := e.activeTags(in.TagRules, rec, ctx)
	tagMap := TagMap(in.ContentTags)
	return Recommendations{
		Recommendations: e.matchContent(in.RecommendedContent, active, tagMap, rec, ctx),
		ActiveTags:      active.list(),
		TagMap:          tagMap,
	}
}

// GetRecommendations runs a recommendation pass with the default evaluator.
func GetRecommendations(in RecommendationInput, rec Record, ctx Context) Recommendations {
	return defaultEvaluator.GetRecommendations(in, rec, ctx)
}
