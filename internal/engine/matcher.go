package engine

import (
	"cmp"
	"slices"
)

// allows reports whether the context passes the object-type, pipeline and
// stage gates. A non-empty gate list requires the context value to be set
// and listed.
func (g Gates) allows(ctx Context) bool {
	return gatePasses(g.ObjectTypes, ctx.ObjectType) &&
		gatePasses(g.Pipelines, ctx.Pipeline) &&
		gatePasses(g.Stages, ctx.Stage)
}

func gatePasses(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	if v == "" {
		return false
	}
	return slices.Contains(allowed, v)
}

// MatchRules returns the enabled rules that apply to the record, highest
// priority first. Callers must not rely on the order of equal priorities.
func (e *Evaluator) MatchRules(rules []Rule, rec Record, ctx Context) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !isEnabled(r.Enabled) {
			continue
		}
		if !r.Gates.allows(ctx) {
			continue
		}
		if r.DisplayOnAll || e.EvaluateRule(r.Criteria, rec) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Rule) int { return cmp.Compare(b.Priority, a.Priority) })
	return out
}

// MatchRules matches rules with the default evaluator.
func MatchRules(rules []Rule, rec Record, ctx Context) []Rule {
	return defaultEvaluator.MatchRules(rules, rec, ctx)
}
