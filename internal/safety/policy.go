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

// Package safety implements the command-safety policy a Worker applies
// before running anything an LLM suggested: an allow-list of verbs, a
// block-list of dangerous patterns, a pruned-environment sandbox, and a
// project-folder containment rule for file writes.
package safety

import (
	"regexp"
	"strings"
)

// AllowedVerbs is the allow-list of command verbs a Worker may execute.
var AllowedVerbs = map[string]struct{}{
	// file ops
	"ls": {}, "cat": {}, "head": {}, "tail": {}, "find": {}, "grep": {},
	"wc": {}, "sort": {}, "uniq": {}, "mkdir": {}, "touch": {}, "cp": {},
	"mv": {}, "rm": {}, "chmod": {}, "chown": {},
	// text
	"echo": {}, "printf": {}, "cut": {}, "awk": {}, "sed": {}, "tr": {},
	// dev
	"python": {}, "python3": {}, "node": {}, "npm": {}, "pip": {}, "pip3": {},
	"git": {}, "curl": {}, "wget": {},
	// introspection
	"pwd": {}, "whoami": {}, "date": {}, "uname": {}, "which": {}, "whereis": {},
	"df": {}, "du": {}, "ps": {}, "top": {}, "free": {}, "uptime": {},
}

// BlockPatterns are case-insensitive regexes that, if matched anywhere
// in the command string, refuse execution outright regardless of the
// leading verb.
var BlockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/`),
	regexp.MustCompile(`(?i)\bsudo\b`),
	regexp.MustCompile(`(?i)\bsu\b`),
	regexp.MustCompile(`(?i)>\s*/dev/\w+`),
	regexp.MustCompile(`(?i)\bchmod\s+777\b`),
	regexp.MustCompile(`&\s*$`),
	regexp.MustCompile(`(?i)\|\s*bash\b`),
	regexp.MustCompile(`(?i)\|\s*sh\b`),
	regexp.MustCompile(`\$\(`),
	regexp.MustCompile("`"),
	regexp.MustCompile(`(?i)\beval\b`),
	regexp.MustCompile(`(?i)\bexec\b`),
	regexp.MustCompile(`(?i)>\s*/etc/`),
	regexp.MustCompile(`(?i)>\s*/var/log/`),
	regexp.MustCompile(`(?i)>\s*/root/`),
}

// AllowedWriteExtensions is the file-write allow-list: common text,
// source, config, and data formats. Archives and executables are
// excluded by default.
var AllowedWriteExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".rst": {},
	".go": {}, ".py": {}, ".js": {}, ".ts": {}, ".tsx": {}, ".jsx": {},
	".java": {}, ".c": {}, ".h": {}, ".cpp": {}, ".rs": {}, ".rb": {}, ".sh": {},
	".yaml": {}, ".yml": {}, ".json": {}, ".toml": {}, ".ini": {}, ".env": {},
	".csv": {}, ".tsv": {}, ".sql": {},
	".html": {}, ".css": {}, ".xml": {},
}

// Verdict is the outcome of evaluating a command against the policy.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Evaluate decides whether command may run. A command is refused if its
// leading verb (the first whitespace-delimited token, with a leading
// path stripped) is not in AllowedVerbs, or if any BlockPatterns matches
// anywhere in the full command string.
func Evaluate(command string) Verdict {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Verdict{Allowed: false, Reason: "empty command"}
	}

	for _, re := range BlockPatterns {
		if re.MatchString(trimmed) {
			return Verdict{Allowed: false, Reason: "matches blocked pattern: " + re.String()}
		}
	}

	verb := leadingVerb(trimmed)
	if _, ok := AllowedVerbs[verb]; !ok {
		return Verdict{Allowed: false, Reason: "verb not allow-listed: " + verb}
	}

	return Verdict{Allowed: true}
}

func leadingVerb(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	verb := fields[0]
	if idx := strings.LastIndex(verb, "/"); idx >= 0 {
		verb = verb[idx+1:]
	}
	return verb
}
