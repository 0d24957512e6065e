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
package decompose

import (
	"encoding/json"
	"fmt"

	"github.com/meshloom/orchestrator/internal/errs"
	"github.com/meshloom/orchestrator/internal/types"
)

// ParseComplexity extracts and validates a ComplexityReport from raw
// LLM output.
func ParseComplexity(raw string) (*types.ComplexityReport, error) {
	var out types.ComplexityReport
	if err := parseReport("complexity", raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseDependency extracts and validates a DependencyReport.
func ParseDependency(raw string) (*types.DependencyReport, error) {
	var out types.DependencyReport
	if err := parseReport("dependency", raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseSkills extracts and validates a SkillsReport.
func ParseSkills(raw string) (*types.SkillsReport, error) {
	var out types.SkillsReport
	if err := parseReport("skills", raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseSubtasks extracts and validates a SubtaskList. If raw yields a
// bare JSON array (e.g. from the ordinal-line fallback), wrap it into
// the {"subtasks":[{"content":...}]} shape before validating.
func ParseSubtasks(raw string) (*types.SubtaskList, error) {
	jsonDoc, ok := ExtractJSON(raw)
	if !ok {
		return Fallback(raw), nil
	}
	wrapped, ok := wrapBareArray(jsonDoc)
	if ok {
		jsonDoc = wrapped
	}

	var out types.SubtaskList
	if err := ValidateAs("subtasks", jsonDoc, &out); err != nil {
		return Fallback(raw), nil
	}
	return &out, nil
}

// parseReport runs the shared extract-then-validate pipeline for the
// non-subtask report kinds.
func parseReport(kind, raw string, out any) error {
	jsonDoc, ok := ExtractJSON(raw)
	if !ok {
		return errs.New(errs.ParseFailure, fmt.Errorf("%s: no JSON found in LLM output", kind))
	}
	if err := ValidateAs(kind, jsonDoc, out); err != nil {
		return errs.New(errs.ParseFailure, err)
	}
	return nil
}

// wrapBareArray detects a bare JSON array of strings (the ordinal-line
// fallback shape) and wraps each element into a SubtaskSpec-shaped
// object so it validates against the "subtasks" schema.
func wrapBareArray(jsonDoc string) (string, bool) {
	var items []string
	if err := json.Unmarshal([]byte(jsonDoc), &items); err != nil {
		return "", false
	}
	list := types.SubtaskList{Subtasks: make([]types.SubtaskSpec, 0, len(items))}
	for _, item := range items {
		list.Subtasks = append(list.Subtasks, types.SubtaskSpec{Content: item})
	}
	encoded, err := json.Marshal(list)
	if err != nil {
		return "", false
	}
	return string(encoded), true
}

// Fallback implements B1: decomposition of an empty (or unparseable)
// task yields exactly one TaskNode-worthy subtask whose content equals
// the original text.
func Fallback(original string) *types.SubtaskList {
	return &types.SubtaskList{Subtasks: []types.SubtaskSpec{{Content: original}}}
}
