package security

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// KeyPolicy describes what one API key may do. Tools holds allow patterns,
// ExcludeTools holds deny patterns; exclusion wins over allowance.
type KeyPolicy struct {
	Key          string   `json:"api_key" yaml:"api_key"`
	Tools        []string `json:"tools" yaml:"tools"`
	ExcludeTools []string `json:"exclude_tools" yaml:"exclude_tools"`
}

// ParsePolicies decodes the MCP_API_KEYS environment value: a JSON array of
// KeyPolicy entries, optionally base64-encoded. An empty value yields an
// empty table (development mode).
func ParsePolicies(raw string) (map[string]KeyPolicy, error) {
	if raw == "" {
		return map[string]KeyPolicy{}, nil
	}

	var entries []KeyPolicy
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		decoded, decErr := base64.StdEncoding.DecodeString(raw)
		if decErr != nil {
			return nil, fmt.Errorf("api keys are neither JSON nor base64 JSON: %w", err)
		}
		if err := json.Unmarshal(decoded, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse api keys: %w", err)
		}
	}

	return indexPolicies(entries)
}

// LoadPolicyFile reads KeyPolicy entries from a YAML file.
func LoadPolicyFile(path string) (map[string]KeyPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var entries []KeyPolicy
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	return indexPolicies(entries)
}

func indexPolicies(entries []KeyPolicy) (map[string]KeyPolicy, error) {
	policies := make(map[string]KeyPolicy, len(entries))
	for _, e := range entries {
		if e.Key == "" {
			return nil, fmt.Errorf("policy entry missing api_key")
		}
		if _, dup := policies[e.Key]; dup {
			return nil, fmt.Errorf("duplicate api_key in policy")
		}
		policies[e.Key] = e
	}
	return policies, nil
}
