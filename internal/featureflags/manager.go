// Package featureflags evaluates rollout flags read from configuration.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// AIEnhance gates the description enhancement call.
const AIEnhance = "ai_enhance"

// rule is a parsed flag value. percent is in [0, 100]; 100 means on for
// everyone and 0 means off.
type rule struct {
	percent int
	partial bool
}

// Manager evaluates flags from a FEATURE_FLAGS list such as
// "ai_enhance=25%,share_links=on". Values are on/true/1, off/false/0 or a
// percentage rolled out deterministically per member. Anything else is off.
type Manager struct {
	rules map[string]rule
}

func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			continue
		}
		rules[name] = parseRule(value)
	}
	return &Manager{rules: rules}
}

func parseRule(value string) rule {
	switch value {
	case "on", "true", "1":
		return rule{percent: 100}
	case "off", "false", "0":
		return rule{}
	}
	digits, ok := strings.CutSuffix(value, "%")
	if !ok {
		return rule{}
	}
	pct, err := strconv.Atoi(digits)
	switch {
	case err != nil || pct <= 0:
		return rule{}
	case pct >= 100:
		return rule{percent: 100}
	}
	return rule{percent: pct, partial: true}
}

// Enabled reports whether name is on for userID. A partial rollout is off
// for anonymous callers.
func (m *Manager) Enabled(name, userID string) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	if !r.partial {
		return r.percent == 100
	}
	return userID != "" && bucket(name, userID) < r.percent
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID string) map[string]bool {
	out := map[string]bool{}
	if m == nil {
		return out
	}
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
