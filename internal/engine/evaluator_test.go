package engine

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cond(property string, op OperatorName, value string) Condition {
	return Condition{Property: property, Operator: op, Value: value}
}

func TestEvaluateCondition(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		rec  Record
		want bool
	}{
		{"is_empty on absent field", Condition{Property: "notes", Operator: OpIsEmpty}, Record{}, true},
		{"is_empty on nil field", cond("notes", OpIsEmpty, ""), Record{"notes": nil}, true},
		{"is_not_empty on absent field", cond("notes", OpIsNotEmpty, ""), Record{}, false},
		{"equals on absent field", cond("stage", OpEquals, ""), Record{}, false},
		{"not_equals on absent field", cond("stage", OpNotEquals, "won"), Record{}, false},
		{"not_contains on absent field", cond("stage", OpNotContains, "won"), Record{}, false},
		{"not_in_list on absent field", cond("stage", OpNotInList, "a,b"), Record{}, false},
		{"currency greater than", cond("amount", OpGreaterThan, "10000"), Record{"amount": "$15,000"}, true},
		{"currency not greater than", cond("amount", OpGreaterThan, "10000"), Record{"amount": "$5,000"}, false},
		{"numeric record value", cond("amount", OpGreaterEqual, "10000"), Record{"amount": 10000.0}, true},
		{"integer record value", cond("seats", OpLessThan, "50"), Record{"seats": 12}, true},
		{"bool record value", cond("is_customer", OpEquals, "TRUE"), Record{"is_customer": true}, true},
		{"json number record value", cond("amount", OpEquals, "42"), Record{"amount": json.Number("42")}, true},
		{"unknown operator fails closed", cond("stage", "matches_regex", ".*"), Record{"stage": "won"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.cond, tt.rec))
		})
	}
}

func TestEvaluateCondition_UnknownOperatorWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := NewEvaluator(DefaultOperators(), &logger)

	got := e.EvaluateCondition(cond("stage", "regex", "x"), Record{"stage": "x"})

	assert.False(t, got)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"operator":"regex"`)
}

func TestEvaluateRule(t *testing.T) {
	won := cond("dealstage", OpEquals, "closedwon")
	big := cond("amount", OpGreaterThan, "10000")
	rec := Record{"dealstage": "closedwon", "amount": "$5,000"}

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"no conditions", Criteria{}, true},
		{"no conditions ignores bad logic", Criteria{Logic: "XOR"}, true},
		{"AND all true", Criteria{Conditions: []Condition{won}, Logic: LogicAnd}, true},
		{"AND one false", Criteria{Conditions: []Condition{won, big}, Logic: LogicAnd}, false},
		{"OR one true", Criteria{Conditions: []Condition{big, won}, Logic: LogicOr}, true},
		{"OR none true", Criteria{Conditions: []Condition{big}, Logic: LogicOr}, false},
		{"lower-case logic is malformed", Criteria{Conditions: []Condition{won}, Logic: "and"}, false},
		{"missing logic is malformed", Criteria{Conditions: []Condition{won}}, false},
		{
			"groups default to AND",
			Criteria{ConditionGroups: []ConditionGroup{
				{Conditions: []Condition{won}, Logic: LogicAnd},
				{Conditions: []Condition{big}, Logic: LogicAnd},
			}},
			false,
		},
		{
			"groups with OR",
			Criteria{GroupLogic: LogicOr, ConditionGroups: []ConditionGroup{
				{Conditions: []Condition{big}, Logic: LogicAnd},
				{Conditions: []Condition{won}, Logic: LogicAnd},
			}},
			true,
		},
		{
			"empty group is vacuously true",
			Criteria{ConditionGroups: []ConditionGroup{{}}},
			true,
		},
		{
			"groups replace the flat list",
			Criteria{
				Conditions:      []Condition{big},
				Logic:           LogicAnd,
				ConditionGroups: []ConditionGroup{{Conditions: []Condition{won}, Logic: LogicOr}},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Default().EvaluateRule(tt.criteria, rec))
		})
	}
}

func TestEvaluateRule_EmptyConditionsAlwaysMatch(t *testing.T) {
	records := []Record{nil, {}, {"a": "b"}, {"amount": 0.0}}
	for _, logic := range []Logic{LogicAnd, LogicOr, "", "garbage"} {
		for _, rec := range records {
			assert.True(t, EvaluateRule(Rule{Criteria: Criteria{Conditions: []Condition{}, Logic: logic}}, rec))
		}
	}
}

func TestEvaluateRule_ShortCircuits(t *testing.T) {
	calls := 0
	ops := DefaultOperators()
	ops["count"] = Operator{Match: func(string, string) bool { calls++; return true }}
	e := NewEvaluator(ops, nil)
	rec := Record{"f": "x"}

	e.EvaluateRule(Criteria{Logic: LogicOr, Conditions: []Condition{cond("f", "count", ""), cond("f", "count", "")}}, rec)
	require.Equal(t, 1, calls)

	calls = 0
	e.EvaluateRule(Criteria{Logic: LogicAnd, Conditions: []Condition{cond("f", OpEquals, "y"), cond("f", "count", "")}}, rec)
	assert.Equal(t, 0, calls)
}

func TestRecord_Lookup(t *testing.T) {
	rec := Record{"s": "v", "f": 1.5, "i": int64(7), "n": nil, "b": false}

	v, ok := rec.Lookup("s")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	v, _ = rec.Lookup("f")
	assert.Equal(t, "1.5", v)

	v, _ = rec.Lookup("i")
	assert.Equal(t, "7", v)

	v, _ = rec.Lookup("b")
	assert.Equal(t, "false", v)

	_, ok = rec.Lookup("n")
	assert.False(t, ok)

	_, ok = rec.Lookup("missing")
	assert.False(t, ok)

	var nilRec Record
	_, ok = nilRec.Lookup("x")
	assert.False(t, ok)
}
