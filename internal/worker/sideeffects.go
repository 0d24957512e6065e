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
package worker

import (
	"regexp"
	"strings"
)

// fencedBlock matches a Markdown fenced code block, optionally tagged
// with a shell language (bash, sh, shell, console, zsh).
var fencedBlock = regexp.MustCompile("(?s)```(?:bash|sh|shell|console|zsh)?\n(.*?)```")

// extractCommands pulls every non-empty, non-comment line out of every
// fenced code block in text, one command per line.
func extractCommands(text string) []string {
	var commands []string
	for _, match := range fencedBlock.FindAllStringSubmatch(text, -1) {
		for _, line := range strings.Split(match[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			commands = append(commands, line)
		}
	}
	return commands
}

// saveTarget matches phrasing like "save to report.md" or "write the
// output to ./out/data.json", capturing the path token.
var saveTarget = regexp.MustCompile(`(?i)\b(?:save|write)\b(?:\s+\w+){0,4}?\s+to\s+([^\s,;]+\.[A-Za-z0-9]{1,8})\b`)

// extractSaveTarget reports whether the original task content asked
// the worker to save output to a file, returning the requested path.
func extractSaveTarget(taskContent string) (string, bool) {
	match := saveTarget.FindStringSubmatch(taskContent)
	if match == nil {
		return "", false
	}
	return match[1], true
}
