package compiler

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hawkstract/nsc/internal/ir"
)

// CheckCapabilities verifies that every effect site reachable from the
// unit's entry points is subsumed by a declared grant.
//
// Matching is two-staged per site: first the effect kind selects the
// candidate grants, then the site's protocol must be enumerated and its
// target must match the grant's domain glob. Violations carry the
// nearest related grant so the build tool can point users at what to
// widen. All violations are collected; nothing short-circuits.
func CheckCapabilities(env *ir.CapabilityEnvironment, u *ir.Unit, sets EffectSets) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, site := range ReachableSites(u, sets) {
		if d, ok := checkSite(env, site); ok {
			diags = append(diags, d)
		}
	}
	return diags
}

// checkSite matches one effect site against the environment, returning
// a violation diagnostic when no grant covers it.
func checkSite(env *ir.CapabilityEnvironment, site ir.EffectSite) (ir.Diagnostic, bool) {
	grants := env.ForKind(site.Kind)
	if len(grants) == 0 {
		return ir.Diagnostic{
			Severity: ir.SeverityError,
			Kind:     ir.DiagCapability,
			Code:     ErrNoGrantForKind,
			Pos:      site.Pos,
			Message:  fmt.Sprintf("no grant declared for %s (function %q requires %s)", site.Kind, site.Fn, describeSite(site)),
		}, true
	}

	// A site is covered if any grant passes both constraints. When all
	// fail, report against the grant that got furthest: a protocol
	// match with a domain mismatch beats a protocol mismatch.
	var nearest ir.CapabilityGrant
	nearestDomainMiss := false
	for _, g := range grants {
		if !g.AllowsProtocol(site.Protocol) {
			if !nearestDomainMiss && nearest.Name == "" {
				nearest = g
			}
			continue
		}
		if !matchDomain(g.DomainPattern, site.Target) {
			if !nearestDomainMiss {
				nearest = g
				nearestDomainMiss = true
			}
			continue
		}
		return ir.Diagnostic{}, false
	}

	d := ir.Diagnostic{
		Severity: ir.SeverityError,
		Kind:     ir.DiagCapability,
		Pos:      site.Pos,
		Grant:    nearest.Name,
	}
	if nearestDomainMiss {
		d.Code = ErrDomainNotCovered
		d.Message = fmt.Sprintf("grant %q does not cover target %q (domain pattern %q)",
			nearest.Name, site.Target, nearest.DomainPattern)
	} else {
		d.Code = ErrProtocolNotCovered
		d.Message = fmt.Sprintf("grant %q does not cover protocol %q (allowed: %v)",
			nearest.Name, site.Protocol, nearest.Protocols)
	}
	return d, true
}

// matchDomain checks a target against a grant's domain glob. Empty
// pattern means unconstrained. Pattern validity was established by the
// declaration parser, so a match error here means an unparsed grant
// slipped through; treat it as not covered.
func matchDomain(pattern, target string) bool {
	if pattern == "" {
		return true
	}
	ok, err := doublestar.Match(pattern, target)
	return err == nil && ok
}

func describeSite(site ir.EffectSite) string {
	switch {
	case site.Protocol != "" && site.Target != "":
		return fmt.Sprintf("%s://%s", site.Protocol, site.Target)
	case site.Target != "":
		return fmt.Sprintf("%q", site.Target)
	default:
		return string(site.Kind)
	}
}
