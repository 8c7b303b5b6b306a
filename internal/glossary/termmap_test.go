package glossary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(b bool) *bool { return &b }

func TestBuildTermMapCache(t *testing.T) {
	tests := []struct {
		name        string
		entries     []Entry
		wantTerms   map[string]string
		wantEntries []string
	}{
		{
			name:        "empty input",
			entries:     nil,
			wantTerms:   map[string]string{},
			wantEntries: nil,
		},
		{
			name: "trigger and aliases are normalized",
			entries: []Entry{
				{ID: "a", Trigger: "  MQL ", Aliases: []string{"Marketing Qualified Lead", "  ", ""}},
			},
			wantTerms:   map[string]string{"mql": "a", "marketing qualified lead": "a"},
			wantEntries: []string{"a"},
		},
		{
			name: "legacy term used when trigger is absent",
			entries: []Entry{
				{ID: "a", Term: "ARR"},
			},
			wantTerms:   map[string]string{"arr": "a"},
			wantEntries: []string{"a"},
		},
		{
			name: "trigger takes precedence over term",
			entries: []Entry{
				{ID: "a", Trigger: "ACV", Term: "Annual Contract Value"},
			},
			wantTerms:   map[string]string{"acv": "a"},
			wantEntries: []string{"a"},
		},
		{
			name: "disabled entries are dropped entirely",
			entries: []Entry{
				{ID: "a", Trigger: "MQL", Enabled: ptr(false)},
				{ID: "b", Trigger: "SQL", Enabled: ptr(true)},
			},
			wantTerms:   map[string]string{"sql": "b"},
			wantEntries: []string{"b"},
		},
		{
			name: "glossary-only entry is kept without a trigger",
			entries: []Entry{
				{ID: "a", Aliases: []string{"ignored"}},
			},
			wantTerms:   map[string]string{},
			wantEntries: []string{"a"},
		},
		{
			name: "later entry wins a trigger collision",
			entries: []Entry{
				{ID: "a", Trigger: "MQL", Enabled: ptr(true)},
				{ID: "b", Term: "MQL", Enabled: ptr(true)},
			},
			wantTerms:   map[string]string{"mql": "b"},
			wantEntries: []string{"a", "b"},
		},
		{
			name: "trigger colliding with an earlier alias is won by the later entry",
			entries: []Entry{
				{ID: "a", Trigger: "Opportunity", Aliases: []string{"Deal"}},
				{ID: "b", Trigger: "deal"},
			},
			wantTerms:   map[string]string{"opportunity": "a", "deal": "b"},
			wantEntries: []string{"a", "b"},
		},
		{
			name: "alias colliding with an earlier trigger is won by the later entry",
			entries: []Entry{
				{ID: "a", Trigger: "Deal"},
				{ID: "b", Trigger: "Opportunity", Aliases: []string{"DEAL"}},
			},
			wantTerms:   map[string]string{"deal": "b", "opportunity": "b"},
			wantEntries: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := BuildTermMapCache(tt.entries)
			assert.Equal(t, tt.wantTerms, c.TermMap)
			assert.Equal(t, tt.wantEntries, c.EntryIDs())
			assert.Len(t, c.EntriesByID, len(tt.wantEntries))
		})
	}
}

func TestBuildTermMapCache_Idempotent(t *testing.T) {
	entries := []Entry{
		{ID: "a", Trigger: "MQL", Aliases: []string{"lead"}},
		{ID: "b", Trigger: "Lead"},
		{ID: "c", Term: "Churn"},
	}
	first := BuildTermMapCache(entries)
	second := BuildTermMapCache(entries)

	assert.Equal(t, first.TermMap, second.TermMap)
	assert.Equal(t, first.Terms(), second.Terms())
	assert.Equal(t, []string{"mql", "lead", "churn"}, first.Terms())
}

func TestTermMapCache_Lookup(t *testing.T) {
	c := BuildTermMapCache([]Entry{
		{ID: "a", Trigger: "MQL", Definition: "Marketing qualified lead"},
	})

	e, ok := c.Lookup("  mql ")
	require.True(t, ok)
	assert.Equal(t, "a", e.ID)
	assert.Equal(t, "Marketing qualified lead", e.Definition)

	_, ok = c.Lookup("sql")
	assert.False(t, ok)

	var empty *TermMapCache
	_, ok = empty.Lookup("mql")
	assert.False(t, ok)
	assert.Equal(t, 0, empty.Len())
}
