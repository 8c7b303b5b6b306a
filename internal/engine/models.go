package engine

import (
	"strconv"

	"content-targeting-engine/internal/glossary"
)

// Logic combines a list of conditions.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Rule kinds as stored; tag rules are kept in their own slice.
const (
	KindBanner  = "banner"
	KindPlay    = "play"
	KindTagRule = "tag_rule"
)

// Condition is one flat field test. Value is always a string and is
// coerced per operator.
type Condition struct {
	Property string       `json:"property" yaml:"property"`
	Operator OperatorName `json:"operator" yaml:"operator"`
	Value    string       `json:"value,omitempty" yaml:"value,omitempty"`
}

// ConditionGroup is a nested list of conditions with its own logic.
type ConditionGroup struct {
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Logic      Logic       `json:"logic" yaml:"logic"`
}

// Criteria is the condition part shared by rules, tag rules and content items.
type Criteria struct {
	Conditions      []Condition      `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Logic           Logic            `json:"logic,omitempty" yaml:"logic,omitempty"`
	ConditionGroups []ConditionGroup `json:"conditionGroups,omitempty" yaml:"conditionGroups,omitempty"`
	GroupLogic      Logic            `json:"groupLogic,omitempty" yaml:"groupLogic,omitempty"`
}

func (c Criteria) hasConditions() bool {
	return len(c.Conditions) > 0 || len(c.ConditionGroups) > 0
}

// Gates are coarse pre-filters evaluated before any condition logic.
// An empty list places no restriction.
type Gates struct {
	ObjectTypes []string `json:"objectTypes,omitempty" yaml:"objectTypes,omitempty"`
	Pipelines   []string `json:"pipelines,omitempty" yaml:"pipelines,omitempty"`
	Stages      []string `json:"stages,omitempty" yaml:"stages,omitempty"`
}

// Rule is a banner or a play.
type Rule struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	Kind         string  `json:"kind,omitempty" yaml:"kind,omitempty"`
	Title        string  `json:"title,omitempty" yaml:"title,omitempty"`
	Message      string  `json:"message,omitempty" yaml:"message,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Priority     float64 `json:"priority" yaml:"priority"`
	DisplayOnAll bool    `json:"displayOnAll,omitempty" yaml:"displayOnAll,omitempty"`
	Criteria     `yaml:",inline"`
	Gates        `yaml:",inline"`
}

// TagRule emits tag ids when its conditions match.
type TagRule struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Enabled      *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	OutputTagIDs []string `json:"outputTagIds" yaml:"outputTagIds"`
	Criteria     `yaml:",inline"`
	Gates        `yaml:",inline"`
}

// ContentItem is a recommended content card.
type ContentItem struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	URL          string   `json:"url,omitempty" yaml:"url,omitempty"`
	Category     string   `json:"category,omitempty" yaml:"category,omitempty"`
	Enabled      *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Priority     float64  `json:"priority" yaml:"priority"`
	TagIDs       []string `json:"tagIds,omitempty" yaml:"tagIds,omitempty"`
	DisplayOnAll bool     `json:"displayOnAll,omitempty" yaml:"displayOnAll,omitempty"`
	Criteria     `yaml:",inline"`
	Gates        `yaml:",inline"`
}

// Tag is the display record behind a tag id.
type Tag struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Color       string `json:"color,omitempty" yaml:"color,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Context narrows rules before conditions run. Empty fields are absent.
type Context struct {
	ObjectType string `json:"objectType,omitempty" yaml:"objectType,omitempty"`
	Pipeline   string `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
	Stage      string `json:"stage,omitempty" yaml:"stage,omitempty"`
}

// Record is a read-only snapshot of field name -> scalar value.
// Values are strings, numbers, booleans or nil.
type Record map[string]any

// Lookup returns the string form of a field. Absent and nil fields report false.
func (r Record) Lookup(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	case interface{ String() string }:
		return x.String(), true
	default:
		return "", false
	}
}

// Bundle is everything a snapshot is compiled from.
type Bundle struct {
	Banners            []Rule           `json:"banners" yaml:"banners"`
	Plays              []Rule           `json:"plays" yaml:"plays"`
	TagRules           []TagRule        `json:"tagRules" yaml:"tagRules"`
	RecommendedContent []ContentItem    `json:"recommendedContent" yaml:"recommendedContent"`
	ContentTags        []Tag            `json:"contentTags" yaml:"contentTags"`
	Glossary           []glossary.Entry `json:"glossary" yaml:"glossary"`
}

func isEnabled(b *bool) bool { return b == nil || *b }

// Bool returns a pointer to b, for the optional Enabled fields.
func Bool(b bool) *bool { return &b }
