package engine

// tagSet is an insertion-ordered set of tag ids.
type tagSet struct {
	order []string
	seen  map[string]struct{}
}

func newTagSet() *tagSet { return &tagSet{seen: map[string]struct{}{}} }

func (s *tagSet) add(id string) {
	if id == "" {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *tagSet) has(id string) bool {
	_, ok := s.seen[id]
	return ok
}

func (s *tagSet) list() []string {
	return append([]string{}, s.order...)
}

// ActiveTags unions the output tags of every enabled tag rule that passes its
// gates and genuinely matches. Tags come back in first-activation order.
func (e *Evaluator) ActiveTags(tagRules []TagRule, rec Record, ctx Context) []string {
	return e.activeTags(tagRules, rec, ctx).list()
}

func (e *Evaluator) activeTags(tagRules []TagRule, rec Record, ctx Context) *tagSet {
	set := newTagSet()
	for _, tr := range tagRules {
		if !isEnabled(tr.Enabled) {
			continue
		}
		if !tr.Gates.allows(ctx) {
			continue
		}
		if !e.EvaluateRule(tr.Criteria, rec) {
			continue
		}
		for _, id := range tr.OutputTagIDs {
			set.add(id)
		}
	}
	return set
}

// ActiveTags computes active tags with the default evaluator.
func ActiveTags(tagRules []TagRule, rec Record, ctx Context) []string {
	return defaultEvaluator.ActiveTags(tagRules, rec, ctx)
}
