package metadata

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

type tagPatterns struct {
	Tag      string   `yaml:"tag"`
	Patterns []string `yaml:"patterns"`
	Keywords []string `yaml:"keywords"`
}

type secretPattern struct {
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
}

type patternFile struct {
	Services         []tagPatterns   `yaml:"services"`
	Categories       []tagPatterns   `yaml:"categories"`
	ErrorTokens      []string        `yaml:"error_tokens"`
	ModernTokens     []string        `yaml:"modern_tokens"`
	ExpressionTokens []string        `yaml:"expression_tokens"`
	Secrets          []secretPattern `yaml:"secrets"`
	GenericNodeName  string          `yaml:"generic_node_name"`
}

// Tables is the compiled, read-only form of the detection tables.
type Tables struct {
	Services         []tagPatterns
	Categories       []tagPatterns
	ErrorTokens      []string
	ModernTokens     []string
	ExpressionTokens []string
	Secrets          []*regexp.Regexp
	GenericNodeName  *regexp.Regexp
}

var (
	tablesOnce sync.Once
	tables     *Tables
	tablesErr  error
)

// LoadTables returns the embedded detection tables, parsing them on first use.
func LoadTables() (*Tables, error) {
	tablesOnce.Do(func() {
		tables, tablesErr = parseTables(patternsYAML)
	})
	return tables, tablesErr
}

func mustTables() *Tables {
	t, err := LoadTables()
	if err != nil {
		panic(err)
	}
	return t
}

func parseTables(data []byte) (*Tables, error) {
	var pf patternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse pattern tables: %w", err)
	}
	t := &Tables{
		ErrorTokens:      lowerAll(pf.ErrorTokens),
		ModernTokens:     lowerAll(pf.ModernTokens),
		ExpressionTokens: pf.ExpressionTokens,
	}
	for _, s := range pf.Services {
		t.Services = append(t.Services, tagPatterns{Tag: s.Tag, Patterns: lowerAll(s.Patterns)})
	}
	for _, c := range pf.Categories {
		t.Categories = append(t.Categories, tagPatterns{Tag: c.Tag, Patterns: lowerAll(c.Keywords)})
	}
	for _, s := range pf.Secrets {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %s secret pattern: %w", s.Kind, err)
		}
		t.Secrets = append(t.Secrets, re)
	}
	re, err := regexp.Compile(pf.GenericNodeName)
	if err != nil {
		return nil, fmt.Errorf("compile generic node name pattern: %w", err)
	}
	t.GenericNodeName = re
	return t, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}

// ServiceTags lists known integration tags in table order.
func ServiceTags() []string {
	t := mustTables()
	out := make([]string, 0, len(t.Services))
	for _, s := range t.Services {
		out = append(out, s.Tag)
	}
	return out
}

// CategoryTags lists known category tags in table order, excluding the fallback.
func CategoryTags() []string {
	t := mustTables()
	out := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		out = append(out, c.Tag)
	}
	return out
}
