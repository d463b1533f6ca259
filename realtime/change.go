// Package realtime carries row-change notifications between the services and live clients.
package realtime

import (
	"sort"
	"strings"
	"time"
)

type Event string

const (
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
)

const subjectPrefix = "courtside"

// Change announces that a row changed. Consumers re-fetch; the payload is not authoritative.
type Change struct {
	Table  string            `json:"table"`
	Event  Event             `json:"event"`
	RowID  string            `json:"row_id"`
	Filter map[string]string `json:"filter,omitempty"`
	At     time.Time         `json:"at"`
}

func NewChange(table string, event Event, rowID string, filter map[string]string) Change {
	return Change{Table: table, Event: event, RowID: rowID, Filter: filter, At: time.Now().UTC()}
}

// Subject is the NATS subject a change is published on.
func (c Change) Subject() string {
	return subjectPrefix + "." + c.Table + "." + strings.ToLower(string(c.Event))
}

// Matches reports whether the change belongs to a subscription on table (empty = all)
// with every key of filter equal to the change's filter value.
func (c Change) Matches(table string, filter map[string]string) bool {
	if table != "" && table != c.Table {
		return false
	}
	for k, v := range filter {
		if c.Filter[k] != v {
			return false
		}
	}
	return true
}

// TableSubject is the wildcard subject for every change on table.
func TableSubject(table string) string {
	if table == "" {
		return subjectPrefix + ".>"
	}
	return subjectPrefix + "." + table + ".*"
}

// EncodeFilter renders a filter as "k=v,k2=v2" with sorted keys.
func EncodeFilter(filter map[string]string) string {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+filter[k])
	}
	return strings.Join(parts, ",")
}

// ParseFilter is the inverse of EncodeFilter. Malformed pairs are skipped.
func ParseFilter(s string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
