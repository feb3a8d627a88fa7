package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testPolicies() map[string]KeyPolicy {
	return map[string]KeyPolicy{
		"web-key": {
			Key:   "web-key",
			Tools: []string{"web_*"},
		},
		"admin-key": {
			Key:   "admin-key",
			Tools: []string{"*"},
		},
		"mixed-key": {
			Key:          "mixed-key",
			Tools:        []string{"web_*", "read_file"},
			ExcludeTools: []string{"web_screenshot"},
		},
	}
}

func TestWildcardAuthorization(t *testing.T) {
	gate := NewGate(testPolicies(), nil)

	// Prefix wildcard matches any name sharing the prefix
	assert.True(t, gate.Authorize("web-key", "web_screenshot", nil, false).Allowed)
	assert.True(t, gate.Authorize("web-key", "web_navigate", nil, false).Allowed)

	// No matching pattern denies
	assert.False(t, gate.Authorize("web-key", "execute_shell", nil, false).Allowed)
	assert.False(t, gate.Authorize("web-key", "shell_exec", nil, false).Allowed)

	// Star allows everything
	assert.True(t, gate.Authorize("admin-key", "execute_shell", nil, false).Allowed)
	assert.True(t, gate.Authorize("admin-key", "web_navigate", nil, false).Allowed)

	// Exact names require equality
	assert.True(t, gate.Authorize("mixed-key", "read_file", nil, false).Allowed)
	assert.False(t, gate.Authorize("mixed-key", "read_files", nil, false).Allowed)
}

func TestExclusionWins(t *testing.T) {
	gate := NewGate(testPolicies(), nil)

	d := gate.Authorize("mixed-key", "web_screenshot", nil, false)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "excluded")

	// Sibling tools under the same prefix stay allowed
	assert.True(t, gate.Authorize("mixed-key", "web_navigate", nil, false).Allowed)
}

func TestUnknownCredential(t *testing.T) {
	gate := NewGate(testPolicies(), nil)

	d := gate.Authorize("no-such-key", "web_navigate", nil, false)
	assert.False(t, d.Allowed)
	assert.False(t, gate.ValidCredential("no-such-key"))
	assert.True(t, gate.ValidCredential("web-key"))
}

func TestDevMode(t *testing.T) {
	gate := NewGate(nil, nil)

	assert.True(t, gate.DevMode())
	assert.True(t, gate.Authorize("anything", "execute_shell", nil, false).Allowed)
	assert.True(t, gate.ValidCredential(""))
}

func TestDenylistBlocksAuthorizedTool(t *testing.T) {
	gate := NewGate(testPolicies(), []string{"rm -rf /", "mkfs", "dd if=/dev/zero"})

	args := map[string]interface{}{"command": "rm -rf / --no-preserve-root"}
	d := gate.Authorize("admin-key", "execute_shell", args, true)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "denied pattern")

	// Spacing tricks do not bypass the scan
	args = map[string]interface{}{"command": "rm   -rf   /"}
	assert.False(t, gate.Authorize("admin-key", "execute_shell", args, true).Allowed)

	// Nested values are scanned too
	args = map[string]interface{}{
		"steps": []interface{}{
			map[string]interface{}{"run": "mkfs.ext4 /dev/sda1"},
		},
	}
	assert.False(t, gate.Authorize("admin-key", "execute_shell", args, true).Allowed)

	// Harmless commands pass
	args = map[string]interface{}{"command": "ls -la /tmp"}
	assert.True(t, gate.Authorize("admin-key", "execute_shell", args, true).Allowed)

	// Tools that never reach an interpreter skip the scan
	args = map[string]interface{}{"note": "docs mention rm -rf / as an example"}
	assert.True(t, gate.Authorize("admin-key", "web_navigate", args, false).Allowed)
}

func TestPermitsFiltering(t *testing.T) {
	gate := NewGate(testPolicies(), nil)

	assert.True(t, gate.Permits("web-key", "web_navigate"))
	assert.False(t, gate.Permits("web-key", "execute_shell"))
	assert.False(t, gate.Permits("mixed-key", "web_screenshot"))
	assert.False(t, gate.Permits("no-such-key", "web_navigate"))
}
