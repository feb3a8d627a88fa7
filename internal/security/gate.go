package security

import (
	"fmt"
	"strings"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny builds a negative decision with a human-readable reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Gate enforces per-credential tool authorization and content-based denial
// for interpreter-bound arguments.
type Gate struct {
	policies map[string]KeyPolicy
	denylist []string
}

// NewGate creates a gate. An empty policy table disables credential checks
// (development mode); an empty denylist disables content scanning.
func NewGate(policies map[string]KeyPolicy, denylist []string) *Gate {
	if policies == nil {
		policies = map[string]KeyPolicy{}
	}
	return &Gate{policies: policies, denylist: denylist}
}

// DevMode reports whether no credentials are configured.
func (g *Gate) DevMode() bool {
	return len(g.policies) == 0
}

// ValidCredential reports whether the credential exists. Always true in
// development mode.
func (g *Gate) ValidCredential(credential string) bool {
	if g.DevMode() {
		return true
	}
	_, ok := g.policies[credential]
	return ok
}

// Authorize decides whether the credential may run toolName with the given
// arguments. scanArgs marks tools whose arguments reach a command
// interpreter; their flattened argument text is checked against the
// denylist, and a hit denies regardless of pattern authorization.
func (g *Gate) Authorize(credential, toolName string, args map[string]interface{}, scanArgs bool) Decision {
	if !g.DevMode() {
		policy, ok := g.policies[credential]
		if !ok {
			return Deny("invalid API key")
		}
		if matchAny(policy.ExcludeTools, toolName) {
			return Deny(fmt.Sprintf("tool %q is excluded for this API key", toolName))
		}
		if !matchAny(policy.Tools, toolName) {
			return Deny(fmt.Sprintf("tool %q is not authorized for this API key", toolName))
		}
	}

	if scanArgs {
		if pattern := g.scanDenylist(args); pattern != "" {
			return Deny(fmt.Sprintf("arguments match denied pattern %q", pattern))
		}
	}

	return Allow
}

// Permits reports whether the credential's patterns allow toolName. Used to
// filter tool listings; no denylist scan is involved.
func (g *Gate) Permits(credential, toolName string) bool {
	if g.DevMode() {
		return true
	}
	policy, ok := g.policies[credential]
	if !ok {
		return false
	}
	return !matchAny(policy.ExcludeTools, toolName) && matchAny(policy.Tools, toolName)
}

// matchAny reports whether name matches any pattern. "*" matches
// everything; a pattern ending in "*" matches names sharing its literal
// prefix; anything else requires exact equality.
func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if matchPattern(p, name) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}
	return pattern == name
}

// scanDenylist flattens all string argument values and checks them against
// the denylist. Text and patterns are lowercased and space-stripped so
// spacing tricks do not slip past, matching the shell tool's own check.
func (g *Gate) scanDenylist(args map[string]interface{}) string {
	if len(g.denylist) == 0 {
		return ""
	}

	var sb strings.Builder
	flattenStrings(args, &sb)
	text := normalize(sb.String())

	for _, pattern := range g.denylist {
		if pattern == "" {
			continue
		}
		if strings.Contains(text, normalize(pattern)) {
			return pattern
		}
	}
	return ""
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

func flattenStrings(v interface{}, sb *strings.Builder) {
	switch val := v.(type) {
	case string:
		sb.WriteString(val)
		sb.WriteByte('\n')
	case map[string]interface{}:
		for _, item := range val {
			flattenStrings(item, sb)
		}
	case []interface{}:
		for _, item := range val {
			flattenStrings(item, sb)
		}
	}
}
