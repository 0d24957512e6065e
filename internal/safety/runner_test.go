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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerExecutesAllowedCommand(t *testing.T) {
	r := NewRunner(t.TempDir())
	res := r.Run(context.Background(), "echo hello")
	assert.False(t, res.Refused)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "hello")
}

func TestRunnerRefusesBlockedCommand(t *testing.T) {
	r := NewRunner(t.TempDir())
	res := r.Run(context.Background(), "sudo ls")
	assert.True(t, res.Refused)
	assert.NotEmpty(t, res.RefusedWhy)
}

func TestRunnerTimesOutLongCommand(t *testing.T) {
	r := NewRunner(t.TempDir())
	r.Timeout = 200 * time.Millisecond
	res := r.Run(context.Background(), "sleep 5")
	assert.True(t, res.TimedOut)
}

func TestRunnerTruncatesOversizedOutput(t *testing.T) {
	r := NewRunner(t.TempDir())
	r.OutputCap = 10
	res := r.Run(context.Background(), "printf '0123456789abcdef'")
	assert.True(t, res.Truncated)
	assert.LessOrEqual(t, len(res.Stdout), 10+len("...[truncated]"))
}

func TestRunnerReportsNonZeroExitCode(t *testing.T) {
	r := NewRunner(t.TempDir())
	res := r.Run(context.Background(), "find /nonexistent-path-xyz")
	require.False(t, res.Refused)
	assert.NotEqual(t, 0, res.ExitCode)
}
