package router

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/task"
)

// Description stems that imply a capability.
var (
	streamingStems  = []string{"stream", "real-time"}
	delegationStems = []string{"delegate", "parallel", "distribute"}
)

// languagePatterns detect languages mentioned in a description or implied
// by context file names.
var languagePatterns = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`(?i)\bgolang\b|\bgo\s+(code|module|package|service|program|function|file)s?\b|\.go\b`),
	"python":     regexp.MustCompile(`(?i)\bpython\b|\.py\b|\bdjango\b|\bflask\b|\bpytest\b`),
	"typescript": regexp.MustCompile(`(?i)\btypescript\b|\.tsx?\b`),
	"javascript": regexp.MustCompile(`(?i)\bjavascript\b|\bnode\.?js\b|\.jsx?\b|\breact\b`),
	"rust":       regexp.MustCompile(`(?i)\brust\b|\.rs\b|\bcargo\b`),
	"java":       regexp.MustCompile(`(?i)\bjava\b|\.java\b|\bspring boot\b`),
	"cpp":        regexp.MustCompile(`(?i)c\+\+|\.cpp\b|\.hpp\b|\.cc\b`),
	"ruby":       regexp.MustCompile(`(?i)\bruby\b|\.rb\b|\brails\b`),
}

// InferRequirements derives what t needs from an adapter. It has no side
// effects and the same task always yields the same requirements.
func (r *Router) InferRequirements(t *task.Task) capability.Requirements {
	req := capability.Requirements{
		Features:         append([]string(nil), r.cfg.TaskFeatures[t.Type]...),
		MinContextTokens: r.estimateContext(t),
		Languages:        detectLanguages(t),
		MultiFile:        len(t.Files()) > 1,
	}

	desc := strings.ToLower(t.Description)
	req.Streaming = t.Streaming || containsAnyStem(desc, streamingStems)
	req.SubAgents = containsAnyStem(desc, delegationStems)

	return req.Merge(extensionRequirements(t))
}

// estimateContext approximates the tokens needed: a fixed budget per file
// plus roughly four characters per token of inline content.
func (r *Router) estimateContext(t *task.Task) int {
	return len(t.Files())*r.cfg.TokensPerFile + len(t.Content())/4
}

func detectLanguages(t *task.Task) []string {
	text := t.Description + "\n" + strings.Join(t.Files(), "\n")
	var langs []string
	for lang, re := range languagePatterns {
		if re.MatchString(text) {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// extensionRequirements collects requirement overrides from every vendor
// extension. Recognized keys: features, languages, minContextTokens,
// multiFile, streaming, subAgents.
func extensionRequirements(t *task.Task) capability.Requirements {
	var req capability.Requirements
	for _, vendor := range t.ExtensionKeys() {
		ext := t.Extensions[vendor]
		req.Features = append(req.Features, stringList(ext["features"])...)
		req.Languages = append(req.Languages, stringList(ext["languages"])...)
		for _, key := range []string{"minContextTokens", "min_context_tokens"} {
			if n := intValue(ext[key]); n > req.MinContextTokens {
				req.MinContextTokens = n
			}
		}
		req.MultiFile = req.MultiFile || boolValue(ext["multiFile"])
		req.Streaming = req.Streaming || boolValue(ext["streaming"])
		req.SubAgents = req.SubAgents || boolValue(ext["subAgents"])
	}
	return req
}

// containsAnyStem reports whether any stem starts a word in text. Unlike a
// whole-word match, "stream" also matches "streaming".
func containsAnyStem(text string, stems []string) bool {
	for _, stem := range stems {
		if containsStem(text, stem) {
			return true
		}
	}
	return false
}

// containsStem expects lowercase inputs.
func containsStem(text, stem string) bool {
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], stem)
		if idx == -1 {
			return false
		}
		idx += offset
		if idx == 0 || !isWordChar(text[idx-1]) {
			return true
		}
		offset = idx + 1
	}
	return false
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		var out []string
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func boolValue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
