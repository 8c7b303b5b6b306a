package engine

import (
	"context"
	"fmt"
	"testing"

	"content-targeting-engine/internal/glossary"
)

func benchBundle(n int) Bundle {
	var b Bundle
	for i := 0; i < n; i++ {
		c := Criteria{
			Logic: LogicAnd,
			Conditions: []Condition{
				{Property: "dealstage", Operator: OpEquals, Value: fmt.Sprintf("stage%d", i%7)},
				{Property: "amount", Operator: OpGreaterThan, Value: fmt.Sprintf("%d", i*1000)},
			},
		}
		b.Banners = append(b.Banners, Rule{ID: fmt.Sprintf("b%d", i), Priority: float64(i % 10), Criteria: c})
		b.TagRules = append(b.TagRules, TagRule{ID: fmt.Sprintf("t%d", i), OutputTagIDs: []string{fmt.Sprintf("tag%d", i%20)}, Criteria: c})
		b.RecommendedContent = append(b.RecommendedContent, ContentItem{ID: fmt.Sprintf("c%d", i), Title: fmt.Sprintf("Card %d", i), TagIDs: []string{fmt.Sprintf("tag%d", i%20)}})
		b.Glossary = append(b.Glossary, glossary.Entry{ID: fmt.Sprintf("g%d", i), Trigger: fmt.Sprintf("term%d", i), Aliases: []string{fmt.Sprintf("alias%d", i)}})
	}
	return b
}

func BenchmarkMatchBanners(b *testing.B) {
	eng := NewEngine(nil, Options{})
	eng.Install(benchBundle(500))
	rec := Record{"dealstage": "stage3", "amount": "$250,000"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = eng.MatchBanners(context.Background(), rec, Context{})
	}
}

func BenchmarkRecommend(b *testing.B) {
	eng := NewEngine(nil, Options{})
	eng.Install(benchBundle(500))
	rec := Record{"dealstage": "stage3", "amount": "$250,000"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = eng.Recommend(context.Background(), rec, Context{})
	}
}

func BenchmarkBuildTermMapCache(b *testing.B) {
	entries := benchBundle(2000).Glossary
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = glossary.BuildTermMapCache(entries)
	}
}
