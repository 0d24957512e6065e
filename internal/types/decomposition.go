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
package types

// ComplexityReport is the Coordinator's first decomposition call output.
type ComplexityReport struct {
	ComplexityLevel  string   `json:"complexity_level"`
	EstimatedMinutes float64  `json:"estimated_minutes"`
	ResourceNeeds    []string `json:"resource_needs"`
}

// DependencyRule expresses an explicit "B depends on A" edge extracted
// from the dependency-analysis call.
type DependencyRule struct {
	TaskIndex    int `json:"task_index"`
	DependsOnIdx int `json:"depends_on_index"`
}

// DependencyReport is the Coordinator's second decomposition call output.
type DependencyReport struct {
	SequentialSteps []string          `json:"sequential_steps"`
	ParallelGroups  [][]int           `json:"parallel_groups"`
	Rules           []DependencyRule  `json:"dependency_rules"`
}

// SkillsReport is the Coordinator's third decomposition call output.
type SkillsReport struct {
	PrimarySkills []string `json:"primary_skills"`
	ToolsRequired []string `json:"tools_required"`
}

// SubtaskSpec is one element of the fourth decomposition call's output.
type SubtaskSpec struct {
	Content string `json:"content"`
}

// SubtaskList is the Coordinator's fourth decomposition call output.
type SubtaskList struct {
	Subtasks []SubtaskSpec `json:"subtasks"`
}

// DecompositionReport normalizes the four decomposition calls into a
// single typed value the Coordinator builds TaskNodes from.
type DecompositionReport struct {
	Complexity ComplexityReport
	Dependency DependencyReport
	Skills     SkillsReport
	Subtasks   SubtaskList
}
