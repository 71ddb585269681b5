package ir

// BindingKind is the mutability class of a binding declaration.
type BindingKind string

const (
	// BindingLock is immutable: exactly one initializing assignment.
	BindingLock BindingKind = "lock"
	// BindingStract is mutable but type-stable after first assignment.
	BindingStract BindingKind = "stract"
	// BindingVault holds its value encrypted outside safe blocks.
	BindingVault BindingKind = "vault"
)

// ValidBindingKinds defines the allowed binding kinds.
var ValidBindingKinds = map[BindingKind]bool{
	BindingLock:   true,
	BindingStract: true,
	BindingVault:  true,
}

// Unit is one compilation unit as handed over by the external front-end:
// capability header, call graph with direct effect annotations, and
// statement bodies for the scope-sensitive passes.
type Unit struct {
	Name        string           `json:"name"`
	Header      []CapabilityDecl `json:"header,omitempty"`
	Functions   []Function       `json:"functions,omitempty"`
	EntryPoints []string         `json:"entry_points,omitempty"`
}

// FunctionByName returns the named function, or nil.
func (u *Unit) FunctionByName(name string) *Function {
	for i := range u.Functions {
		if u.Functions[i].Name == name {
			return &u.Functions[i]
		}
	}
	return nil
}

// CapabilityDecl is a raw `use capability` statement before validation.
// Protocol may enumerate alternatives separated by "|" ("https|wss").
type CapabilityDecl struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Pos      Pos    `json:"pos"`
}

// Function is one node of the call graph.
//
// Calls and Effects form the input to the capability passes; Body feeds
// the vault and mutability passes. The front-end has already resolved
// which syntactic constructs are effect sites.
type Function struct {
	Name    string       `json:"name"`
	Pos     Pos          `json:"pos"`
	Calls   []CallSite   `json:"calls,omitempty"`
	Effects []EffectSite `json:"effects,omitempty"`
	Body    []Stmt       `json:"body,omitempty"`
}

// CallSite is a direct call edge in the call graph.
type CallSite struct {
	Callee string `json:"callee"`
	Pos    Pos    `json:"pos"`
}

// StmtKind discriminates statement variants.
type StmtKind string

const (
	StmtDecl   StmtKind = "decl"   // lock/stract/vault declaration
	StmtAssign StmtKind = "assign" // reassignment of an existing binding
	StmtReturn StmtKind = "return" // return from the enclosing function
	StmtExpr   StmtKind = "expr"   // expression statement (typically a call)
	StmtSafe   StmtKind = "safe"   // safe { ... } block
	StmtIf     StmtKind = "if"     // conditional with optional else
)

// Stmt is one statement of a function body. Which fields are meaningful
// depends on Kind:
//
//	decl:   Name, Binding, Type, Value
//	assign: Name, Type, Value
//	return: Value (nil for bare return)
//	expr:   Value
//	safe:   BlockID, Body
//	if:     Cond, Body (then), Else
type Stmt struct {
	Kind    StmtKind    `json:"kind"`
	Pos     Pos         `json:"pos"`
	Name    string      `json:"name,omitempty"`
	Binding BindingKind `json:"binding,omitempty"`
	Type    string      `json:"type,omitempty"`
	Value   *Expr       `json:"value,omitempty"`
	Cond    *Expr       `json:"cond,omitempty"`
	Body    []Stmt      `json:"body,omitempty"`
	Else    []Stmt      `json:"else,omitempty"`
	BlockID string      `json:"block_id,omitempty"`
}

// Expr is the resolved skeleton of an expression: the bindings it
// references, the function it calls (if it is a call), and the closure
// body (if it is a function literal). The front-end has already evaluated
// everything else the security passes do not care about.
type Expr struct {
	Refs    []string `json:"refs,omitempty"`
	Call    string   `json:"call,omitempty"`
	Closure []Stmt   `json:"closure,omitempty"`
}

// VaultBinding describes one vault declaration as seen by the analyzer.
// BlockID is the outermost safe block whose exit invalidates the
// binding's plaintext; empty while the binding is only declared.
type VaultBinding struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Fn      string `json:"fn"`
	BlockID string `json:"block_id,omitempty"`
	Pos     Pos    `json:"pos"`
}

// SafeBlockInfo is the analyzer's record of one safe block: its nesting
// and the vault bindings whose plaintext is live inside it.
type SafeBlockInfo struct {
	ID       string   `json:"id"`
	Parent   string   `json:"parent,omitempty"`
	Fn       string   `json:"fn"`
	Bindings []string `json:"bindings,omitempty"`
	Pos      Pos      `json:"pos"`
}

// ScopeMetadata is the vault analyzer's output for the runtime guard:
// which bindings must be decrypted on entry to which block, and which
// block exit zeroizes each binding.
type ScopeMetadata struct {
	Blocks   []SafeBlockInfo `json:"blocks,omitempty"`
	Bindings []VaultBinding  `json:"bindings,omitempty"`
}

// BlockByID returns the block info with the given scope id, or nil.
func (m *ScopeMetadata) BlockByID(id string) *SafeBlockInfo {
	for i := range m.Blocks {
		if m.Blocks[i].ID == id {
			return &m.Blocks[i]
		}
	}
	return nil
}
