package ir

import "sort"

// CapabilityGrant is a parsed `use capability` header statement.
//
// The grant name designates the effect class it authorizes ("Network",
// "Filesystem", ...). Protocols and DomainPattern constrain the class:
// an empty Protocols slice authorizes any protocol, an empty DomainPattern
// authorizes any target. Immutable once parsed.
type CapabilityGrant struct {
	Name          string     `json:"name"`
	Kind          EffectKind `json:"kind"`
	Protocols     []string   `json:"protocols,omitempty"`
	DomainPattern string     `json:"domain_pattern,omitempty"`
	Pos           Pos        `json:"pos"`
}

// AllowsProtocol reports whether the grant covers the given protocol.
func (g CapabilityGrant) AllowsProtocol(proto string) bool {
	if len(g.Protocols) == 0 || proto == "" {
		return true
	}
	for _, p := range g.Protocols {
		if p == proto {
			return true
		}
	}
	return false
}

// CapabilityEnvironment is the frozen grant set for one compilation unit.
//
// It is read-only context threaded explicitly through every analysis pass.
// There is no way to add a grant after construction: the grant set is
// fixed at the unit header, dynamic mutation is not part of the model.
type CapabilityEnvironment struct {
	byName map[string]CapabilityGrant
	byKind map[EffectKind][]CapabilityGrant
	names  []string
}

// NewCapabilityEnvironment freezes a grant slice into an environment.
// Duplicate names must have been rejected by the declaration parser;
// a later duplicate silently loses here, so callers must validate first.
func NewCapabilityEnvironment(grants []CapabilityGrant) *CapabilityEnvironment {
	env := &CapabilityEnvironment{
		byName: make(map[string]CapabilityGrant, len(grants)),
		byKind: make(map[EffectKind][]CapabilityGrant),
	}
	for _, g := range grants {
		if _, ok := env.byName[g.Name]; ok {
			continue
		}
		env.byName[g.Name] = g
		env.byKind[g.Kind] = append(env.byKind[g.Kind], g)
		env.names = append(env.names, g.Name)
	}
	sort.Strings(env.names)
	return env
}

// Lookup returns the grant with the given capability name.
func (e *CapabilityEnvironment) Lookup(name string) (CapabilityGrant, bool) {
	g, ok := e.byName[name]
	return g, ok
}

// ForKind returns the grants authorizing the given effect kind, in
// declaration order.
func (e *CapabilityEnvironment) ForKind(kind EffectKind) []CapabilityGrant {
	return e.byKind[kind]
}

// Names returns the sorted capability names in the environment.
func (e *CapabilityEnvironment) Names() []string {
	return append([]string(nil), e.names...)
}

// Len returns the number of grants.
func (e *CapabilityEnvironment) Len() int {
	return len(e.byName)
}
