package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"content-targeting-engine/internal/engine"
)

// FileSource loads a bundle from a YAML file, or from every YAML file under a
// directory merged in lexicographic path order.
type FileSource struct {
	Path string
}

func isYAML(p string) bool {
	l := strings.ToLower(p)
	return strings.HasSuffix(l, ".yml") || strings.HasSuffix(l, ".yaml")
}

func (f FileSource) LoadBundle(_ context.Context) (engine.Bundle, error) {
	files, err := f.files()
	if err != nil {
		return engine.Bundle{}, err
	}
	var out engine.Bundle
	for _, p := range files {
		b, err := LoadBundleFile(p)
		if err != nil {
			return engine.Bundle{}, err
		}
		merge(&out, b)
	}
	return out, nil
}

func (f FileSource) files() ([]string, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", f.Path, err)
	}
	if !info.IsDir() {
		return []string{f.Path}, nil
	}
	var files []string
	err = filepath.WalkDir(f.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(p) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", f.Path, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadBundleFile decodes one YAML bundle file.
func LoadBundleFile(path string) (engine.Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return engine.Bundle{}, fmt.Errorf("read %s: %w", path, err)
	}
	b, err := DecodeBundle(raw)
	if err != nil {
		return engine.Bundle{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return b, nil
}

// DecodeBundle parses a YAML bundle. Unknown keys are rejected so typos in
// hand-written files surface instead of silently matching nothing.
func DecodeBundle(raw []byte) (engine.Bundle, error) {
	var b engine.Bundle
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
		return engine.Bundle{}, err
	}
	for i := range b.Banners {
		if b.Banners[i].Kind == "" {
			b.Banners[i].Kind = engine.KindBanner
		}
	}
	for i := range b.Plays {
		if b.Plays[i].Kind == "" {
			b.Plays[i].Kind = engine.KindPlay
		}
	}
	return b, nil
}

func merge(dst *engine.Bundle, src engine.Bundle) {
	dst.Banners = append(dst.Banners, src.Banners...)
	dst.Plays = append(dst.Plays, src.Plays...)
	dst.TagRules = append(dst.TagRules, src.TagRules...)
	dst.RecommendedContent = append(dst.RecommendedContent, src.RecommendedContent...)
	dst.ContentTags = append(dst.ContentTags, src.ContentTags...)
	dst.Glossary = append(dst.Glossary, src.Glossary...)
}
