// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package decompose implements the Coordinator's decomposition pipeline:
// a permissive JSON extractor for LLM output, JSON-schema validation of
// the resulting decomposition reports, and the safe fallback to a
// single TaskNode when extraction and validation both fail.
package decompose

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedBlock    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	ordinalPrefix  = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s*`)
)

// ExtractJSON applies §4's permissive extractor to raw LLM output: (1)
// strip Markdown fences, (2) find the first balanced JSON object or
// array, (3) if that fails, split on lines and strip ordinal/bullet
// prefixes, returning a JSON array of the resulting strings. Returns
// false if nothing usable was found.
func ExtractJSON(raw string) (string, bool) {
	candidate := stripFences(raw)

	if balanced, ok := firstBalancedJSON(candidate); ok {
		return balanced, true
	}

	if lines, ok := splitOrdinalLines(candidate); ok {
		encoded, err := json.Marshal(lines)
		if err == nil {
			return string(encoded), true
		}
	}

	return "", false
}

func stripFences(raw string) string {
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// firstBalancedJSON scans for the first '{' or '[' and returns the
// substring up to its matching close, tracking string/escape state so
// braces inside string literals don't confuse the balance counter.
func firstBalancedJSON(s string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				var js json.RawMessage
				if json.Unmarshal([]byte(candidate), &js) == nil {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}

// splitOrdinalLines splits s into non-empty lines and strips a leading
// ordinal ("1.", "2)") or bullet ("-", "*") prefix from each, as a last
// resort when the LLM produced a plain numbered list instead of JSON.
func splitOrdinalLines(s string) ([]string, bool) {
	rawLines := strings.Split(s, "\n")
	var out []string
	for _, line := range rawLines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		trimmed = ordinalPrefix.ReplaceAllString(trimmed, "")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
