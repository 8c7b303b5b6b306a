// Package glossary builds the trigger lookup used for glossary tooltips.
//
// The cache is rebuilt from the full entry list on every change; there is no
// incremental patching. Building is linear in entries plus aliases.
package glossary

import "strings"

// Entry is a glossary (wiki) entry. Term is the legacy name for Trigger.
type Entry struct {
	ID         string   `json:"id" yaml:"id"`
	Trigger    string   `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Term       string   `json:"term,omitempty" yaml:"term,omitempty"`
	Aliases    []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Definition string   `json:"definition,omitempty" yaml:"definition,omitempty"`
	Category   string   `json:"category,omitempty" yaml:"category,omitempty"`
	Link       string   `json:"link,omitempty" yaml:"link,omitempty"`
	Enabled    *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// IsEnabled treats a missing flag as enabled.
func (e Entry) IsEnabled() bool { return e.Enabled == nil || *e.Enabled }

// PrimaryTrigger is Trigger, falling back to Term.
func (e Entry) PrimaryTrigger() string {
	if e.Trigger != "" {
		return e.Trigger
	}
	return e.Term
}

// Normalize lower-cases and trims a trigger.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TermMapCache maps normalized triggers to entry ids, and entry ids to entries.
// It is immutable once built.
type TermMapCache struct {
	TermMap     map[string]string `json:"termMap"`
	EntriesByID map[string]Entry  `json:"entriesById"`

	terms   []string // first-insertion order of TermMap keys
	entries []string // insertion order of EntriesByID keys
}

// BuildTermMapCache indexes the enabled entries in input order. When two
// entries claim the same trigger the later one wins. Entries without a
// trigger are kept in EntriesByID but produce no key.
func BuildTermMapCache(entries []Entry) *TermMapCache {
	c := &TermMapCache{
		TermMap:     make(map[string]string),
		EntriesByID: make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		if !e.IsEnabled() {
			continue
		}
		if _, ok := c.EntriesByID[e.ID]; !ok {
			c.entries = append(c.entries, e.ID)
		}
		c.EntriesByID[e.ID] = e

		primary := e.PrimaryTrigger()
		if primary == "" {
			continue
		}
		c.register(primary, e.ID)
		for _, alias := range e.Aliases {
			c.register(alias, e.ID)
		}
	}
	return c
}

func (c *TermMapCache) register(trigger, id string) {
	key := Normalize(trigger)
	if key == "" {
		return
	}
	if _, ok := c.TermMap[key]; !ok {
		c.terms = append(c.terms, key)
	}
	c.TermMap[key] = id
}

// Lookup resolves a trigger (any case, surrounding space ignored) to its entry.
func (c *TermMapCache) Lookup(trigger string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	id, ok := c.TermMap[Normalize(trigger)]
	if !ok {
		return Entry{}, false
	}
	e, ok := c.EntriesByID[id]
	return e, ok
}

// Terms returns the normalized triggers in first-registration order.
func (c *TermMapCache) Terms() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.terms...)
}

// EntryIDs returns the ids of the indexed entries in input order.
func (c *TermMapCache) EntryIDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.entries...)
}

// Len is the number of distinct triggers.
func (c *TermMapCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.TermMap)
}
