package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// OperatorName identifies a condition operator.
type OperatorName string

const (
	OpEquals       OperatorName = "equals"
	OpNotEquals    OperatorName = "not_equals"
	OpContains     OperatorName = "contains"
	OpNotContains  OperatorName = "not_contains"
	OpStartsWith   OperatorName = "starts_with"
	OpEndsWith     OperatorName = "ends_with"
	OpGreaterThan  OperatorName = "greater_than"
	OpLessThan     OperatorName = "less_than"
	OpGreaterEqual OperatorName = "greater_equal"
	OpLessEqual    OperatorName = "less_equal"
	OpIsEmpty      OperatorName = "is_empty"
	OpIsNotEmpty   OperatorName = "is_not_empty"
	OpInList       OperatorName = "in_list"
	OpNotInList    OperatorName = "not_in_list"
)

// MatchFn compares a record value against a rule value.
type MatchFn func(fieldValue, ruleValue string) bool

// Operator is one entry of the operator table. Unary operators are also
// consulted when the record field is missing; they then see an empty value.
type Operator struct {
	Unary bool
	Match MatchFn
}

// Operators is an immutable operator table. Build it once and share it.
type Operators map[OperatorName]Operator

// DefaultOperators returns a fresh table with every supported operator.
func DefaultOperators() Operators {
	return Operators{
		OpEquals:       {Match: createEquals()},
		OpNotEquals:    {Match: negate(createEquals())},
		OpContains:     {Match: createContains()},
		OpNotContains:  {Match: negate(createContains())},
		OpStartsWith:   {Match: createStartsWith()},
		OpEndsWith:     {Match: createEndsWith()},
		OpGreaterThan:  {Match: createNumeric(func(a, b float64) bool { return a > b })},
		OpLessThan:     {Match: createNumeric(func(a, b float64) bool { return a < b })},
		OpGreaterEqual: {Match: createNumeric(func(a, b float64) bool { return a >= b })},
		OpLessEqual:    {Match: createNumeric(func(a, b float64) bool { return a <= b })},
		OpIsEmpty:      {Unary: true, Match: createIsEmpty()},
		OpIsNotEmpty:   {Unary: true, Match: negate(createIsEmpty())},
		OpInList:       {Match: createInList()},
		OpNotInList:    {Match: negate(createInList())},
	}
}

// Lookup returns the operator registered under name.
func (o Operators) Lookup(name OperatorName) (Operator, bool) {
	op, ok := o[name]
	return op, ok
}

// -------- Equality / substring (case-insensitive) --------

func createEquals() MatchFn {
	return func(fieldValue, ruleValue string) bool {
		return strings.EqualFold(fieldValue, ruleValue)
	}
}

func createContains() MatchFn {
	return func(fieldValue, ruleValue string) bool {
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(ruleValue))
	}
}

func createStartsWith() MatchFn {
	return func(fieldValue, ruleValue string) bool {
		return strings.HasPrefix(strings.ToLower(fieldValue), strings.ToLower(ruleValue))
	}
}

func createEndsWith() MatchFn {
	return func(fieldValue, ruleValue string) bool {
		return strings.HasSuffix(strings.ToLower(fieldValue), strings.ToLower(ruleValue))
	}
}

// -------- Numeric --------

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]`)
	numericPrefix = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// parseNumber strips everything but digits, dots and minus signs, then reads
// the longest leading number. "$125,000" reads as 125000.
func parseNumber(s string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	m := numericPrefix.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func createNumeric(cmp func(a, b float64) bool) MatchFn {
	return func(fieldValue, ruleValue string) bool {
		a, ok := parseNumber(fieldValue)
		if !ok {
			return false
		}
		b, ok := parseNumber(ruleValue)
		if !ok {
			return false
		}
		return cmp(a, b)
	}
}

// -------- Emptiness --------

func createIsEmpty() MatchFn {
	return func(fieldValue, _ string) bool {
		return strings.TrimSpace(fieldValue) == ""
	}
}

// -------- Lists --------

func createInList() MatchFn {
	return func(fieldValue, ruleValue string) bool {
		v := strings.ToLower(strings.TrimSpace(fieldValue))
		for _, item := range strings.Split(ruleValue, ",") {
			item = strings.ToLower(strings.TrimSpace(item))
			if item != "" && item == v {
				return true
			}
		}
		return false
	}
}

func negate(fn MatchFn) MatchFn {
	return func(fieldValue, ruleValue string) bool { return !fn(fieldValue, ruleValue) }
}
