package domain

import "sort"

// CapabilityID identifies one independently reachable backend.
type CapabilityID string

const (
	SourceControl    CapabilityID = "source-control"
	ContainerRuntime CapabilityID = "container-runtime"
)

// AllCapabilities lists every backend the router knows how to reach.
func AllCapabilities() []CapabilityID {
	return []CapabilityID{SourceControl, ContainerRuntime}
}

func (c CapabilityID) String() string {
	return string(c)
}

func (c CapabilityID) IsValid() bool {
	for _, known := range AllCapabilities() {
		if c == known {
			return true
		}
	}
	return false
}

// CapabilitySet is the set of backends that answered their last probe as running.
// It is built once per request and never mutated afterwards.
type CapabilitySet struct {
	members map[CapabilityID]struct{}
}

func NewCapabilitySet(ids ...CapabilityID) CapabilitySet {
	members := make(map[CapabilityID]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		members[id] = struct{}{}
	}
	return CapabilitySet{members: members}
}

func (s CapabilitySet) Has(id CapabilityID) bool {
	_, ok := s.members[id]
	return ok
}

func (s CapabilitySet) Len() int {
	return len(s.members)
}

// IDs returns the members in a stable order.
func (s CapabilitySet) IDs() []CapabilityID {
	out := make([]CapabilityID, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s CapabilitySet) Strings() []string {
	ids := s.IDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
