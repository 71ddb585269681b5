package compiler

import "github.com/hawkstract/nsc/internal/ir"

// Diagnostic codes (E100-E139), one block per pass.
const (
	// Declaration errors (E101-E109)
	ErrDuplicateGrant    = "E101" // capability name declared twice
	ErrUnknownCapability = "E102" // name is not a registered effect kind
	ErrBadProtocolToken  = "E103" // malformed protocol token
	ErrBadDomainPattern  = "E104" // malformed domain glob

	// Capability violations (E110-E119)
	ErrNoGrantForKind     = "E110" // effect kind has no grant at all
	ErrDomainNotCovered   = "E111" // grant present, target outside domain pattern
	ErrProtocolNotCovered = "E112" // grant present, protocol not enumerated

	// Vault scope errors (E120-E129)
	ErrVaultOutsideSafe   = "E120" // vault referenced with no enclosing safe block
	ErrVaultEscapes       = "E121" // decrypted value leaves its safe scope
	ErrVaultUncoveredCall = "E122" // vault value passed to call needing undeclared capability

	// Mutability errors (E130-E139)
	ErrLockReassigned = "E130" // second assignment to a lock binding
	ErrStractRetyped  = "E131" // stract reassigned with a different type
)

// errorDiag builds an error-severity diagnostic.
func errorDiag(kind ir.DiagnosticKind, code string, pos ir.Pos, msg string) ir.Diagnostic {
	return ir.Diagnostic{
		Severity: ir.SeverityError,
		Kind:     kind,
		Code:     code,
		Pos:      pos,
		Message:  msg,
	}
}
