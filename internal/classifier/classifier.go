// Package classifier assigns a category, document type, and tags to a source
// file from keywords in its path.
package classifier

import (
	"path/filepath"
	"strings"
)

// Result is the classification of a single file
type Result struct {
	Category string   `json:"category"`
	DocType  string   `json:"doc_type"`
	Tags     []string `json:"tags"`
}

type rule struct {
	keywords []string
	category string
	docType  string
	tags     []string
}

// pathRules match whole path components, checked in order
var pathRules = []rule{
	{[]string{"aws", "cloud", "documentation", "docs"}, "technical", "documentation", []string{"aws", "cloud"}},
	{[]string{"policy", "compliance", "governance"}, "business", "policy", []string{"policy", "compliance"}},
	{[]string{"manual", "guide", "reference"}, "technical", "manual", []string{"manual", "reference"}},
	{[]string{"tutorial", "training", "course"}, "educational", "tutorial", []string{"tutorial", "training"}},
	{[]string{"research", "paper", "study"}, "research", "paper", []string{"research", "study"}},
	{[]string{"legal", "contract", "terms"}, "legal", "contract", []string{"legal", "contract"}},
}

// nameRules match substrings of the file name, checked in order
var nameRules = []rule{
	{[]string{"wellarchitected", "well-architected", "framework"}, "technical", "documentation", []string{"aws", "framework", "best-practices"}},
	{[]string{"manual", "guide", "reference"}, "technical", "manual", []string{"manual", "reference"}},
	{[]string{"policy", "procedure"}, "business", "policy", []string{"policy", "procedure"}},
}

var fallback = rule{category: "general", docType: "documentation", tags: []string{"general"}}

// Classify derives the classification of path. Path components are compared
// case-insensitively against each keyword group; when none match, the file
// name alone is searched for a narrower set of substrings.
func Classify(path string) Result {
	parts := components(path)

	for _, r := range pathRules {
		for _, kw := range r.keywords {
			if contains(parts, kw) {
				return r.result()
			}
		}
	}

	name := strings.ToLower(filepath.Base(path))
	for _, r := range nameRules {
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				return r.result()
			}
		}
	}

	return fallback.result()
}

func (r rule) result() Result {
	tags := make([]string, len(r.tags))
	copy(tags, r.tags)
	return Result{Category: r.category, DocType: r.docType, Tags: tags}
}

func components(path string) []string {
	clean := filepath.ToSlash(filepath.Clean(path))
	parts := make([]string, 0)
	for _, p := range strings.Split(clean, "/") {
		if p != "" {
			parts = append(parts, strings.ToLower(p))
		}
	}
	return parts
}

func contains(parts []string, kw string) bool {
	for _, p := range parts {
		if p == kw {
			return true
		}
	}
	return false
}
