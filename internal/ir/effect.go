package ir

import "sort"

// EffectKind categorizes an externally observable effect.
//
// The set is open-ended: front-ends may register additional kinds (e.g. a
// GPU or IPC category) via RegisterEffectKind before analysis runs. The
// core treats kinds opaquely except for grant matching, so new categories
// need no checker changes.
type EffectKind string

const (
	EffectNetwork     EffectKind = "Network"
	EffectFilesystem  EffectKind = "Filesystem"
	EffectSyscall     EffectKind = "Syscall"
	EffectExec        EffectKind = "Exec"
	EffectEnvironment EffectKind = "Environment"
)

// knownEffectKinds holds every kind the core will accept in grants and
// effect annotations. Mutated only via RegisterEffectKind, and only before
// analysis starts.
var knownEffectKinds = map[EffectKind]bool{
	EffectNetwork:     true,
	EffectFilesystem:  true,
	EffectSyscall:     true,
	EffectExec:        true,
	EffectEnvironment: true,
}

// RegisterEffectKind adds a new effect category.
// Not safe for concurrent use with running analyses; call during init.
func RegisterEffectKind(kind EffectKind) {
	knownEffectKinds[kind] = true
}

// KnownEffectKind reports whether kind is registered.
func KnownEffectKind(kind EffectKind) bool {
	return knownEffectKinds[kind]
}

// EffectSite is a program location performing an effect.
//
// Target carries the constraint-matching parameter for the site: the
// requested domain for Network, the path for Filesystem, the syscall or
// command name otherwise. Protocol is set only for Network sites.
type EffectSite struct {
	Kind     EffectKind `json:"kind"`
	Target   string     `json:"target,omitempty"`
	Protocol string     `json:"protocol,omitempty"`
	Fn       string     `json:"fn"` // function containing the site
	Pos      Pos        `json:"pos"`
}

// key returns the identity of a site within an effect set.
type siteKey struct {
	kind     EffectKind
	target   string
	protocol string
	fn       string
	pos      Pos
}

func (s EffectSite) key() siteKey {
	return siteKey{s.Kind, s.Target, s.Protocol, s.Fn, s.Pos}
}

// EffectSet is the closure of effect sites reachable from a function.
// It grows monotonically during the fixed-point computation and is frozen
// (via Sites) once the builder converges.
type EffectSet struct {
	sites map[siteKey]EffectSite
}

// NewEffectSet creates an empty effect set.
func NewEffectSet() *EffectSet {
	return &EffectSet{sites: make(map[siteKey]EffectSite)}
}

// Add inserts a site, reporting whether the set changed.
func (s *EffectSet) Add(site EffectSite) bool {
	k := site.key()
	if _, ok := s.sites[k]; ok {
		return false
	}
	s.sites[k] = site
	return true
}

// AddAll merges every site of other into s, reporting whether s changed.
func (s *EffectSet) AddAll(other *EffectSet) bool {
	if other == nil {
		return false
	}
	changed := false
	for k, site := range other.sites {
		if _, ok := s.sites[k]; !ok {
			s.sites[k] = site
			changed = true
		}
	}
	return changed
}

// Len returns the number of distinct sites in the set.
func (s *EffectSet) Len() int {
	return len(s.sites)
}

// Sites returns the sites in deterministic order: ascending source
// position, then function name, then kind. The fixed point may visit
// functions in any order; this is where determinism is restored.
func (s *EffectSet) Sites() []EffectSite {
	out := make([]EffectSite, 0, len(s.sites))
	for _, site := range s.sites {
		out = append(out, site)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos != out[j].Pos {
			return out[i].Pos.Before(out[j].Pos)
		}
		if out[i].Fn != out[j].Fn {
			return out[i].Fn < out[j].Fn
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Target < out[j].Target
	})
	return out
}
