package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-targeting-engine/internal/engine"
)

const bannersYAML = `
banners:
  - id: won
    title: Closed won
    priority: 10
    logic: AND
    conditions:
      - property: dealstage
        operator: equals
        value: closedwon
    objectTypes: [deals]
  - id: everywhere
    priority: 5
    displayOnAll: true
plays:
  - id: discovery
    enabled: false
tagRules:
  - id: ent
    logic: OR
    outputTagIds: [enterprise]
    conditions:
      - property: segment
        operator: in_list
        value: enterprise, strategic
`

const contentYAML = `
recommendedContent:
  - id: deck
    title: Enterprise deck
    tagIds: [enterprise]
contentTags:
  - id: enterprise
    name: Enterprise
glossary:
  - id: mql
    trigger: MQL
    aliases: [marketing qualified lead]
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestFileSource_LoadFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "content.yaml", bannersYAML)

	b, err := FileSource{Path: p}.LoadBundle(context.Background())
	require.NoError(t, err)

	require.Len(t, b.Banners, 2)
	assert.Equal(t, engine.KindBanner, b.Banners[0].Kind)
	assert.Equal(t, []string{"deals"}, b.Banners[0].ObjectTypes)
	assert.Equal(t, engine.OpEquals, b.Banners[0].Conditions[0].Operator)
	assert.True(t, b.Banners[1].DisplayOnAll)
	require.Len(t, b.Plays, 1)
	assert.Equal(t, engine.KindPlay, b.Plays[0].Kind)
	assert.False(t, *b.Plays[0].Enabled)
	assert.Equal(t, []string{"enterprise"}, b.TagRules[0].OutputTagIDs)
}

func TestFileSource_LoadDirMergesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10-rules.yaml", bannersYAML)
	writeFile(t, dir, "20-content.yml", contentYAML)
	writeFile(t, dir, "README.md", "not yaml")

	b, err := FileSource{Path: dir}.LoadBundle(context.Background())
	require.NoError(t, err)

	assert.Len(t, b.Banners, 2)
	assert.Len(t, b.RecommendedContent, 1)
	assert.Len(t, b.ContentTags, 1)
	require.Len(t, b.Glossary, 1)
	assert.Equal(t, []string{"marketing qualified lead"}, b.Glossary[0].Aliases)

	rec := engine.Record{"segment": "Strategic"}
	recs := engine.GetRecommendations(engine.RecommendationInput{
		TagRules:           b.TagRules,
		RecommendedContent: b.RecommendedContent,
		ContentTags:        b.ContentTags,
	}, rec, engine.Context{})
	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, "deck", recs.Recommendations[0].ID)
}

func TestDecodeBundle_RejectsUnknownKeys(t *testing.T) {
	_, err := DecodeBundle([]byte("banners:\n  - id: x\n    conditons: []\n"))
	require.Error(t, err)

	b, err := DecodeBundle(nil)
	require.NoError(t, err)
	assert.Empty(t, b.Banners)
}

func TestFileSource_Missing(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "nope.yaml")}.LoadBundle(context.Background())
	require.Error(t, err)
}

func TestFileSource_Watch(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "content.yaml", bannersYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	go func() {
		_ = FileSource{Path: p}.Watch(ctx, 20*time.Millisecond, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "other.yaml", contentYAML)
	writeFile(t, dir, "content.yaml", contentYAML)

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification")
	}
}
