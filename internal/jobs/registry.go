package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies a long-running pipeline stage.
type Kind string

const (
	Audio    Kind = "audio"
	Avatar   Kind = "avatar"
	Assemble Kind = "assemble"
)

// Kinds lists every stage kind in pipeline order.
var Kinds = []Kind{Audio, Avatar, Assemble}

// ParseKind resolves a user-supplied kind name.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case Audio:
		return Audio, nil
	case Avatar:
		return Avatar, nil
	case Assemble:
		return Assemble, nil
	default:
		return "", fmt.Errorf("unknown stage kind %q", value)
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case Audio, Avatar, Assemble:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// Registry maps each kind to its active job id. The zero value is empty and
// ready to use. Registry is not safe for concurrent use; the workflow manager
// serializes access.
type Registry struct {
	ids map[Kind]string
}

// Set records id as the active job for kind.
func (r *Registry) Set(kind Kind, id string) {
	if r.ids == nil {
		r.ids = make(map[Kind]string, len(Kinds))
	}
	id = strings.TrimSpace(id)
	if id == "" {
		delete(r.ids, kind)
		return
	}
	r.ids[kind] = id
}

// Clear removes the job ids for the given kinds. Clearing an unset kind is a no-op.
func (r *Registry) Clear(kinds ...Kind) {
	for _, kind := range kinds {
		delete(r.ids, kind)
	}
}

// Get returns the active job id for kind, if any.
func (r *Registry) Get(kind Kind) (string, bool) {
	id, ok := r.ids[kind]
	return id, ok
}

// Matches reports whether id is still the active job for kind.
func (r *Registry) Matches(kind Kind, id string) bool {
	current, ok := r.ids[kind]
	return ok && id != "" && current == id
}

// Snapshot returns a copy of the registry.
func (r *Registry) Snapshot() Snapshot {
	var snap Snapshot
	for kind, id := range r.ids {
		value := id
		switch kind {
		case Audio:
			snap.Audio = &value
		case Avatar:
			snap.Avatar = &value
		case Assemble:
			snap.Assemble = &value
		}
	}
	return snap
}

// Restore replaces the registry contents with snap.
func (r *Registry) Restore(snap Snapshot) {
	r.ids = nil
	for _, kind := range Kinds {
		if id := snap.ID(kind); id != "" {
			r.Set(kind, id)
		}
	}
}

// Snapshot is the persisted form of the registry. Unset kinds encode as null.
type Snapshot struct {
	Audio    *string `json:"audio"`
	Avatar   *string `json:"avatar"`
	Assemble *string `json:"assemble"`
}

// ID returns the job id recorded for kind, or "".
func (s Snapshot) ID(kind Kind) string {
	var ptr *string
	switch kind {
	case Audio:
		ptr = s.Audio
	case Avatar:
		ptr = s.Avatar
	case Assemble:
		ptr = s.Assemble
	}
	if ptr == nil {
		return ""
	}
	return *ptr
}

// Empty reports whether no kind has a job id.
func (s Snapshot) Empty() bool {
	return s.Audio == nil && s.Avatar == nil && s.Assemble == nil
}

// String renders the snapshot as compact JSON for logs.
func (s Snapshot) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}
