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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshloom/orchestrator/internal/errs"
)

func TestParseComplexityValidJSON(t *testing.T) {
	raw := "```json\n{\"complexity_level\": \"high\", \"estimated_minutes\": 45, \"resource_needs\": [\"gpu\"]}\n```"
	report, err := ParseComplexity(raw)
	require.NoError(t, err)
	assert.Equal(t, "high", report.ComplexityLevel)
	assert.Equal(t, 45.0, report.EstimatedMinutes)
}

func TestParseComplexityMissingRequiredFieldFails(t *testing.T) {
	raw := `{"resource_needs": ["gpu"]}`
	_, err := ParseComplexity(raw)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ParseFailure))
}

func TestParseDependencyValidJSON(t *testing.T) {
	raw := `{"sequential_steps": ["a", "b"], "parallel_groups": [[0,1]], "dependency_rules": [{"task_index": 1, "depends_on_index": 0}]}`
	report, err := ParseDependency(raw)
	require.NoError(t, err)
	require.Len(t, report.Rules, 1)
	assert.Equal(t, 1, report.Rules[0].TaskIndex)
	assert.Equal(t, 0, report.Rules[0].DependsOnIdx)
}

func TestParseSubtasksValidJSON(t *testing.T) {
	raw := `{"subtasks": [{"content": "do a"}, {"content": "do b"}]}`
	list, err := ParseSubtasks(raw)
	require.NoError(t, err)
	require.Len(t, list.Subtasks, 2)
}

func TestParseSubtasksWrapsBareOrdinalList(t *testing.T) {
	raw := "1. scrape the homepage\n2. parse the results"
	list, err := ParseSubtasks(raw)
	require.NoError(t, err)
	require.Len(t, list.Subtasks, 2)
	assert.Equal(t, "scrape the homepage", list.Subtasks[0].Content)
}

// B1: decomposition of an empty task yields exactly one fallback
// TaskNode with content equal to the original.
func TestB1_FallbackOnUnparseableInput(t *testing.T) {
	list, err := ParseSubtasks("")
	require.NoError(t, err)
	require.Len(t, list.Subtasks, 1)
	assert.Equal(t, "", list.Subtasks[0].Content)
}

func TestB1_FallbackHelperPreservesOriginalContent(t *testing.T) {
	list := Fallback("build a web scraper")
	require.Len(t, list.Subtasks, 1)
	assert.Equal(t, "build a web scraper", list.Subtasks[0].Content)
}

func TestParseSubtasksFallsBackOnSchemaViolation(t *testing.T) {
	raw := `{"subtasks": []}`
	list, err := ParseSubtasks(raw)
	require.NoError(t, err)
	require.Len(t, list.Subtasks, 1)
	assert.Equal(t, raw, list.Subtasks[0].Content)
}
