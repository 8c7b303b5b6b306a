package engine

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"content-targeting-engine/internal/observability"
)

// Evaluator runs conditions and rules against a record. It holds no mutable
// state and is safe for concurrent use.
type Evaluator struct {
	ops Operators
	log *zerolog.Logger
}

// NewEvaluator builds an evaluator over the given operator table. A nil
// logger means the global zerolog logger.
func NewEvaluator(ops Operators, logger *zerolog.Logger) *Evaluator {
	if ops == nil {
		ops = DefaultOperators()
	}
	return &Evaluator{ops: ops, log: logger}
}

var defaultEvaluator = NewEvaluator(DefaultOperators(), nil)

// Default returns the shared evaluator backed by DefaultOperators and the
// global logger.
func Default() *Evaluator { return defaultEvaluator }

func (e *Evaluator) logger() *zerolog.Logger {
	if e.log != nil {
		return e.log
	}
	return &log.Logger
}

// EvaluateCondition tests one condition. Missing fields never match, except
// for unary operators which see an empty value.
func (e *Evaluator) EvaluateCondition(c Condition, rec Record) bool {
	op, ok := e.ops.Lookup(c.Operator)
	if !ok {
		e.logger().Warn().
			Str("operator", string(c.Operator)).
			Str("property", c.Property).
			Msg("unknown operator; condition treated as non-matching")
		observability.UnknownOperators.WithLabelValues(string(c.Operator)).Inc()
		return false
	}

	v, present := rec.Lookup(c.Property)
	if !present {
		if op.Unary {
			return op.Match("", c.Value)
		}
		return false
	}
	return op.Match(v, c.Value)
}

// EvaluateRule combines the criteria's conditions. No conditions at all is a match.
func (e *Evaluator) EvaluateRule(c Criteria, rec Record) bool {
	if len(c.ConditionGroups) > 0 {
		return e.evaluateGroups(c.ConditionGroups, c.GroupLogic, rec)
	}
	return e.evaluateList(c.Conditions, c.Logic, rec)
}

func (e *Evaluator) evaluateList(conds []Condition, logic Logic, rec Record) bool {
	if len(conds) == 0 {
		return true
	}
	switch logic {
	case LogicAnd:
		for _, c := range conds {
			if !e.EvaluateCondition(c, rec) {
				return false
			}
		}
		return true
	case LogicOr:
		for _, c := range conds {
			if e.EvaluateCondition(c, rec) {
				return true
			}
		}
		return false
	default:
		e.logger().Debug().Str("logic", string(logic)).Msg("unsupported logic; rule treated as non-matching")
		return false
	}
}

func (e *Evaluator) evaluateGroups(groups []ConditionGroup, logic Logic, rec Record) bool {
	if logic == "" {
		logic = LogicAnd
	}
	switch logic {
	case LogicAnd:
		for _, g := range groups {
			if !e.evaluateList(g.Conditions, g.Logic, rec) {
				return false
			}
		}
		return true
	case LogicOr:
		for _, g := range groups {
			if e.evaluateList(g.Conditions, g.Logic, rec) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// EvaluateCondition evaluates c with the default evaluator.
func EvaluateCondition(c Condition, rec Record) bool {
	return defaultEvaluator.EvaluateCondition(c, rec)
}

// EvaluateRule evaluates r with the default evaluator.
func EvaluateRule(r Rule, rec Record) bool {
	return defaultEvaluator.EvaluateRule(r.Criteria, rec)
}
