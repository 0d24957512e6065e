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
package coordinator

import (
	"context"
	"regexp"
	"strings"

	"github.com/meshloom/orchestrator/internal/safety"
	"github.com/meshloom/orchestrator/internal/types"
)

var (
	createVerbRe     = regexp.MustCompile(`(?i)\b(create|write|generate|make)\b`)
	filenameTokenRe  = regexp.MustCompile(`\b[\w./-]+\.[A-Za-z0-9]{1,8}\b`)
	complexProjectRe = regexp.MustCompile(`(?i)\b(helm|docker|kubernetes|k8s|compose)\b`)
)

// matchSimpleFileCreation implements §4.5's direct-execution fast path:
// a create-verb plus a recognized filename token, and no complex-project
// keyword.
func matchSimpleFileCreation(task string) (string, bool) {
	if complexProjectRe.MatchString(task) {
		return "", false
	}
	if !createVerbRe.MatchString(task) {
		return "", false
	}
	name := filenameTokenRe.FindString(task)
	if name == "" {
		return "", false
	}
	return name, true
}

// matchComplexProject recognizes the two built-in project templates.
func matchComplexProject(task string) (string, bool) {
	lower := strings.ToLower(task)
	switch {
	case strings.Contains(lower, "helm"):
		return "helm", true
	case strings.Contains(lower, "compose") || strings.Contains(lower, "docker") || strings.Contains(lower, "k8s") || strings.Contains(lower, "kubernetes"):
		return "compose", true
	}
	return "", false
}

// runSimpleFileCreation bypasses decomposition: it asks the Gateway for
// the file's contents directly and writes it through the command-safety
// file-write policy.
func (c *Coordinator) runSimpleFileCreation(ctx context.Context, m types.Message, filename, taskText string) {
	summary := types.RequestSummary{RequestID: m.RequestID, TotalTasks: 1}

	resp, err := c.gateway.Chat(ctx, []types.ChatMessage{
		{Role: types.ChatRoleSystem, Content: "Generate the complete contents of the requested file. Reply with only the file contents, no commentary or code fences."},
		{Role: types.ChatRoleUser, Content: taskText},
	}, c.cfg.Model, "")
	if err != nil {
		summary.FailedTasks = 1
		summary.FailedTaskDetails = []types.FailedTask{{TaskID: filename, LastError: err.Error()}}
		c.emitFinal(ctx, m.RequestID, false, summary)
		return
	}

	path, err := safety.WriteFile(c.cfg.ProjectDir, filename, []byte(resp.Content))
	if err != nil {
		summary.FailedTasks = 1
		summary.FailedTaskDetails = []types.FailedTask{{TaskID: filename, LastError: err.Error()}}
		c.emitFinal(ctx, m.RequestID, false, summary)
		return
	}

	summary.CompletedTasks = 1
	summary.SuccessRate = 1
	summary.Content = path
	c.emitFinal(ctx, m.RequestID, true, summary)
}

// runComplexProjectTemplate emits a deterministic file tree for a
// recognized complex-project keyword, with no decomposition or LLM call.
func (c *Coordinator) runComplexProjectTemplate(ctx context.Context, m types.Message, kind string) {
	files := projectTemplate(kind)
	summary := types.RequestSummary{RequestID: m.RequestID, TotalTasks: len(files)}

	var written []string
	var failedDetails []types.FailedTask
	for path, content := range files {
		full, err := safety.WriteFile(c.cfg.ProjectDir, path, []byte(content))
		if err != nil {
			failedDetails = append(failedDetails, types.FailedTask{TaskID: path, LastError: err.Error()})
			continue
		}
		written = append(written, full)
	}

	summary.CompletedTasks = len(written)
	summary.FailedTasks = len(failedDetails)
	if len(files) > 0 {
		summary.SuccessRate = float64(len(written)) / float64(len(files))
	}
	summary.Content = strings.Join(written, ", ")
	summary.FailedTaskDetails = failedDetails
	c.emitFinal(ctx, m.RequestID, len(failedDetails) == 0, summary)
}

// projectTemplate returns the built-in file tree for a recognized
// complex-project kind.
func projectTemplate(kind string) map[string]string {
	if kind == "helm" {
		return map[string]string{
			"Chart.yaml":                "apiVersion: v2\nname: app\nversion: 0.1.0\n",
			"values.yaml":               "replicaCount: 1\nimage:\n  repository: app\n  tag: latest\n",
			"templates/deployment.yaml": "apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: app\nspec:\n  replicas: {{ .Values.replicaCount }}\n  selector:\n    matchLabels:\n      app: app\n  template:\n    metadata:\n      labels:\n        app: app\n    spec:\n      containers:\n        - name: app\n          image: \"{{ .Values.image.repository }}:{{ .Values.image.tag }}\"\n",
		}
	}
	return map[string]string{
		"docker-compose.yml": "version: \"3.8\"\nservices:\n  app:\n    build: .\n    ports:\n      - \"8080:8080\"\n",
	}
}
