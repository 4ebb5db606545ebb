// Package featureflags evaluates config-driven feature flags with optional
// percentage rollouts.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Flag names recognized by the application. Unknown names evaluate to false.
const (
	// FlagSignupsDisabled closes public registration when enabled.
	FlagSignupsDisabled = "signups_disabled"
	// FlagFeaturedFeed gates the featured-posts section of the feed.
	FlagFeaturedFeed = "featured_feed"
	// FlagTaskAttachments gates task file attachment endpoints.
	FlagTaskAttachments = "task_attachments"
)

type kind int

const (
	kindOff kind = iota
	kindOn
	kindPercent
)

type flagValue struct {
	kind    kind
	percent int
	raw     string
}

func parseValue(value string) flagValue {
	fv := flagValue{raw: value}
	switch value {
	case "on", "true", "1":
		fv.kind = kindOn
	case "off", "false", "0":
		fv.kind = kindOff
	default:
		if pct, ok := strings.CutSuffix(value, "%"); ok {
			if n, err := strconv.Atoi(pct); err == nil {
				fv.kind = kindPercent
				fv.percent = n
			}
		}
	}
	return fv
}

// Manager holds flags parsed from a comma-separated name=value list, e.g.
// "signups_disabled=on,featured_feed=25%,task_attachments=off". Values are
// on/true/1, off/false/0, or N% for a deterministic per-user rollout.
type Manager struct {
	flags map[string]flagValue
}

// NewManager parses the configured flag list. Malformed entries are skipped.
func NewManager(raw string) *Manager {
	flags := make(map[string]flagValue)
	for _, entry := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || value == "" {
			continue
		}
		flags[name] = parseValue(value)
	}
	return &Manager{flags: flags}
}

// Enabled reports whether the named flag is on for the given user. Percentage
// rollouts bucket users deterministically, so a user keeps their answer
// across requests; userID 0 (anonymous) never falls inside a partial rollout.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	fv, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	switch fv.kind {
	case kindOn:
		return true
	case kindPercent:
		if fv.percent >= 100 {
			return true
		}
		if fv.percent <= 0 || userID == 0 {
			return false
		}
		return rolloutBucket(normalize(name), userID) < fv.percent
	}
	return false
}

// Raw returns a copy of the configured flag values as parsed from config.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for name, fv := range m.flags {
		out[name] = fv.raw
	}
	return out
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

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
