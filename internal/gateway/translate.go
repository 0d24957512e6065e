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
package gateway

import "strings"

// germanKeywordThreshold is the minimum count of common German function
// words that flags a task as German, per §4.2's lexical heuristic.
const germanKeywordThreshold = 2

// germanKeywords are common German function words unlikely to appear
// together in English text.
var germanKeywords = []string{
	"der", "die", "das", "und", "ist", "nicht", "ich", "du", "wir",
	"bitte", "erstelle", "erstellen", "für", "mit", "eine", "einen",
	"können", "müssen", "soll", "werden", "wurde",
}

// looksGerman applies the heuristic keyword-count test from §4.2: true
// when at least germanKeywordThreshold distinct German function words
// appear in text.
func looksGerman(text string) bool {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && r != 'ä' && r != 'ö' && r != 'ü' && r != 'ß'
	})
	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}

	hits := 0
	for _, kw := range germanKeywords {
		if _, ok := wordSet[kw]; ok {
			hits++
		}
	}
	return hits >= germanKeywordThreshold
}
