package domain

import (
	"fmt"
	"strings"
)

// Entity identifies one of the two searchable document types.
type Entity string

const (
	EntityItem   Entity = "items"
	EntityClient Entity = "clients"
)

// Label returns the singular name used in logs and error messages.
func (e Entity) Label() string {
	switch e {
	case EntityItem:
		return "item"
	case EntityClient:
		return "client"
	}
	return string(e)
}

// Target selects which entities a rebuild covers.
type Target string

const (
	TargetItems   Target = "items"
	TargetClients Target = "clients"
	TargetAll     Target = "all"
)

// ParseTarget accepts items, clients or all, case-insensitively.
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetItems, TargetClients, TargetAll:
		return t, nil
	}
	return "", fmt.Errorf("unknown rebuild target %q: want items, clients or all", s)
}

// Entities returns the entities covered by t, items first.
func (t Target) Entities() []Entity {
	switch t {
	case TargetItems:
		return []Entity{EntityItem}
	case TargetClients:
		return []Entity{EntityClient}
	case TargetAll:
		return []Entity{EntityItem, EntityClient}
	}
	return nil
}
