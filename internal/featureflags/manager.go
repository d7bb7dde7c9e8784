package featureflags

import (
	"fmt"
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
)

// Flags the blog consults. Registration and comments default to enabled;
// setting them off closes the corresponding endpoints without a deploy.
const (
	FlagRegistration   = "registration"
	FlagComments       = "comments"
	FlagImageUploads   = "image_uploads"
	FlagScheduledPosts = "scheduled_posts"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "registration=on,comments=on,image_uploads=25%"
type Manager struct {
	flags map[string]string
}

// NewManager parses a comma-separated flag list. Malformed entries are
// dropped rather than failing startup; a missing flag evaluates to the
// caller-side default.
func NewManager(raw string) *Manager {
	flags := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		flags[key] = value
	}
	return &Manager{flags: flags}
}

// Enabled reports whether a flag is on for the given user. Values are
// on/true/1, off/false/0, or N% for a deterministic per-user rollout.
// Unset flags read as false; use EnabledOr for features on by default.
func (m *Manager) Enabled(name string, userID uint) bool {
	enabled, _ := m.evaluate(name, userID)
	return enabled
}

// EnabledOr evaluates a flag, falling back to def when the flag is unset.
func (m *Manager) EnabledOr(name string, userID uint, def bool) bool {
	enabled, ok := m.evaluate(name, userID)
	if !ok {
		return def
	}
	return enabled
}

func (m *Manager) evaluate(name string, userID uint) (enabled, configured bool) {
	if m == nil {
		return false, false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false, false
	}

	switch value {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	}
	if pct, isPercent := parsePercent(value); isPercent {
		return inRollout(name, userID, pct), true
	}
	// Unrecognized values disable the flag rather than guessing.
	return false, true
}

// parsePercent reads values like "25%". A malformed number counts as 0%.
func parsePercent(value string) (int, bool) {
	raw, found := strings.CutSuffix(value, "%")
	if !found {
		return 0, false
	}
	pct, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true
	}
	return pct, true
}

// inRollout buckets a user 0-99 by flag name and reports whether they fall
// inside the first pct buckets. Anonymous users (ID 0) never join a partial
// rollout.
func inRollout(name string, userID uint, pct int) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32()%100) < pct
}

// Raw returns a copy of the configured flag values.
func (m *Manager) Raw() map[string]string {
	return maps.Clone(m.flags)
}

// Snapshot evaluates every configured flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
