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
package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFile validates targetPath against the extension allow-list and
// the project-folder containment rule (after symlink resolution), then
// writes data atomically (temp file + rename).
func WriteFile(projectDir, targetPath string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(targetPath))
	if _, ok := AllowedWriteExtensions[ext]; !ok {
		return "", fmt.Errorf("extension %q is not in the file-write allow-list", ext)
	}

	absProject, err := resolveDir(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolve project folder: %w", err)
	}

	candidate := targetPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(absProject, candidate)
	}
	candidate = filepath.Clean(candidate)

	resolved, err := resolveWithinExistingAncestor(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}

	if !withinDir(absProject, resolved) {
		return "", fmt.Errorf("target path %q escapes project folder %q", resolved, absProject)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(resolved), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, resolved); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename into place: %w", err)
	}
	return resolved, nil
}

func resolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Directory may not exist yet; fall back to the absolute path.
		return abs, nil
	}
	return real, nil
}

// resolveWithinExistingAncestor resolves symlinks on the longest
// existing ancestor of path and rejoins the non-existent suffix, since
// the target file itself usually doesn't exist yet.
func resolveWithinExistingAncestor(path string) (string, error) {
	existing := filepath.Dir(path)
	suffix := []string{filepath.Base(path)}
	for {
		if real, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(append([]string{real}, suffix...)...), nil
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return path, nil
		}
		suffix = append([]string{filepath.Base(existing)}, suffix...)
		existing = parent
	}
}

func withinDir(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
