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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateAllowsListedVerb(t *testing.T) {
	v := Evaluate("ls -la /tmp")
	assert.True(t, v.Allowed)
}

func TestEvaluateRejectsUnlistedVerb(t *testing.T) {
	v := Evaluate("docker run --rm alpine")
	assert.False(t, v.Allowed)
}

// P8: no command containing a string that matches any block pattern is
// ever allowed, regardless of its leading verb.
func TestP8_BlockPatternsAlwaysWin(t *testing.T) {
	blocked := []string{
		"rm -rf /",
		"ls && sudo reboot",
		"echo hi | bash",
		"echo hi | sh",
		"cat file > /dev/null",
		"chmod 777 /etc/passwd",
		"echo $(whoami)",
		"echo `whoami`",
		"eval echo hi",
		"exec ls",
		"echo hi > /etc/passwd",
		"echo hi > /var/log/syslog",
		"echo hi > /root/.ssh/authorized_keys",
		"sleep 10 &",
	}
	for _, cmd := range blocked {
		v := Evaluate(cmd)
		assert.False(t, v.Allowed, "expected command to be blocked: %q", cmd)
	}
}

func TestEvaluateRejectsEmptyCommand(t *testing.T) {
	v := Evaluate("   ")
	assert.False(t, v.Allowed)
}

func TestLeadingVerbStripsPathPrefix(t *testing.T) {
	v := Evaluate("/usr/bin/ls -la")
	assert.True(t, v.Allowed)
}
