package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hawkstract/nsc/internal/ir"
)

// protocolToken matches one protocol name, the URI-scheme grammar:
// a letter followed by letters, digits, "+", "-", or ".".
var protocolToken = regexp.MustCompile(`^[a-z][a-z0-9+.\-]*$`)

// ParseGrants turns the unit's capability header into a frozen
// CapabilityEnvironment. Every malformed or duplicate declaration is a
// DeclarationError; well-formed declarations still enter the environment
// so the later passes can report against whatever grants do exist.
func ParseGrants(u *ir.Unit) (*ir.CapabilityEnvironment, []ir.Diagnostic) {
	var diags []ir.Diagnostic
	var grants []ir.CapabilityGrant
	seen := make(map[string]ir.Pos)

	for _, decl := range u.Header {
		if prev, dup := seen[decl.Name]; dup {
			diags = append(diags, errorDiag(ir.DiagDeclaration, ErrDuplicateGrant, decl.Pos,
				fmt.Sprintf("duplicate capability declaration %q (first declared at %s)", decl.Name, prev)))
			continue
		}
		seen[decl.Name] = decl.Pos

		kind := ir.EffectKind(decl.Name)
		if !ir.KnownEffectKind(kind) {
			diags = append(diags, errorDiag(ir.DiagDeclaration, ErrUnknownCapability, decl.Pos,
				fmt.Sprintf("unknown capability %q", decl.Name)))
			continue
		}

		protocols, protoDiags := parseProtocols(decl)
		diags = append(diags, protoDiags...)

		if decl.Domain != "" && !doublestar.ValidatePattern(decl.Domain) {
			diags = append(diags, errorDiag(ir.DiagDeclaration, ErrBadDomainPattern, decl.Pos,
				fmt.Sprintf("malformed domain pattern %q in capability %q", decl.Domain, decl.Name)))
			continue
		}
		if len(protoDiags) > 0 {
			continue
		}

		grants = append(grants, ir.CapabilityGrant{
			Name:          decl.Name,
			Kind:          kind,
			Protocols:     protocols,
			DomainPattern: decl.Domain,
			Pos:           decl.Pos,
		})
	}

	return ir.NewCapabilityEnvironment(grants), diags
}

// parseProtocols splits an enumerated protocol constraint ("https|wss")
// into tokens and validates each one.
func parseProtocols(decl ir.CapabilityDecl) ([]string, []ir.Diagnostic) {
	if decl.Protocol == "" {
		return nil, nil
	}
	var diags []ir.Diagnostic
	var protocols []string
	for _, tok := range strings.Split(decl.Protocol, "|") {
		tok = strings.TrimSpace(tok)
		if !protocolToken.MatchString(tok) {
			diags = append(diags, errorDiag(ir.DiagDeclaration, ErrBadProtocolToken, decl.Pos,
				fmt.Sprintf("malformed protocol token %q in capability %q", tok, decl.Name)))
			continue
		}
		protocols = append(protocols, tok)
	}
	return protocols, diags
}
