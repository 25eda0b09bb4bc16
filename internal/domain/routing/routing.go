// Package routing maps organizations to the coordinator who receives a copy
// of each result.
package routing

import (
	"sort"
	"strings"
)

// Table is an immutable organization -> coordinator address lookup. An
// organization that is absent, or present with an empty address, is not
// targeted.
type Table struct {
	entries map[string]string
}

// NewTable copies entries into a new Table. Keys and addresses are trimmed;
// blank addresses are kept as explicit "do not target" markers.
func NewTable(entries map[string]string) *Table {
	t := &Table{entries: make(map[string]string, len(entries))}
	for org, addr := range entries {
		org = strings.TrimSpace(org)
		if org == "" {
			continue
		}
		t.entries[org] = strings.TrimSpace(addr)
	}
	return t
}

// Coordinator returns the address for org and whether the organization
// should be targeted at all.
func (t *Table) Coordinator(org string) (string, bool) {
	if t == nil {
		return "", false
	}
	addr := t.entries[strings.TrimSpace(org)]
	return addr, addr != ""
}

// Organizations lists every known organization in lexical order, including
// those that are not targeted.
func (t *Table) Organizations() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.entries))
	for org := range t.entries {
		out = append(out, org)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of organizations in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
