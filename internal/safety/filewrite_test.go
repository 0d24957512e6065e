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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileWritesWithinProjectDir(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(dir, "notes/report.md", []byte("hello"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteFileRejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteFile(dir, "payload.exe", []byte("x"))
	assert.Error(t, err)
}

// P9: no file is written outside the configured project folder, even
// when the target path tries to escape via "..".
func TestP9_RejectsPathEscapingProjectFolder(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteFile(dir, "../escape.txt", []byte("x"))
	assert.Error(t, err)
}

func TestP9_RejectsAbsolutePathOutsideProjectFolder(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteFile(dir, filepath.Join(os.TempDir(), "other-root", "escape.txt"), []byte("x"))
	assert.Error(t, err)
}

func TestWriteFileOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteFile(dir, "a.txt", []byte("first"))
	require.NoError(t, err)
	path, err := WriteFile(dir, "a.txt", []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
