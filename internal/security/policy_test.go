package security

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoliciesJSON(t *testing.T) {
	raw := `[{"api_key":"k1","tools":["web_*"],"exclude_tools":["web_screenshot"]},{"api_key":"k2","tools":["*"]}]`

	policies, err := ParsePolicies(raw)
	require.NoError(t, err)
	require.Len(t, policies, 2)

	assert.Equal(t, []string{"web_*"}, policies["k1"].Tools)
	assert.Equal(t, []string{"web_screenshot"}, policies["k1"].ExcludeTools)
	assert.Equal(t, []string{"*"}, policies["k2"].Tools)
}

func TestParsePoliciesBase64(t *testing.T) {
	raw := `[{"api_key":"k1","tools":["read_file"]}]`
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))

	policies, err := ParsePolicies(encoded)
	require.NoError(t, err)
	assert.Equal(t, []string{"read_file"}, policies["k1"].Tools)
}

func TestParsePoliciesEmpty(t *testing.T) {
	policies, err := ParsePolicies("")
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestParsePoliciesInvalid(t *testing.T) {
	_, err := ParsePolicies("not json at all")
	assert.Error(t, err)

	_, err = ParsePolicies(`[{"tools":["*"]}]`)
	assert.Error(t, err, "missing api_key should fail")

	_, err = ParsePolicies(`[{"api_key":"k1"},{"api_key":"k1"}]`)
	assert.Error(t, err, "duplicate api_key should fail")
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
- api_key: file-key
  tools:
    - web_*
    - execute_shell
  exclude_tools:
    - web_screenshot
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	policies, err := LoadPolicyFile(path)
	require.NoError(t, err)
	require.Contains(t, policies, "file-key")
	assert.Equal(t, []string{"web_*", "execute_shell"}, policies["file-key"].Tools)
	assert.Equal(t, []string{"web_screenshot"}, policies["file-key"].ExcludeTools)
}

func TestLoadPolicyFileMissing(t *testing.T) {
	_, err := LoadPolicyFile("/nonexistent/policy.yaml")
	assert.Error(t, err)
}
