package engine

import (
	"github.com/hawkstract/nsc/internal/ir"
)

// Guard manages vault binding keys and scoped decryption for one
// execution context. Construct it with the scope metadata the vault
// analyzer emitted; metadata-driven block entry then decrypts exactly
// the bindings the analyzer proved live in that block.
type Guard struct {
	keys *keyring
	meta *ir.ScopeMetadata
}

// NewGuard creates a guard. meta may be nil when blocks are entered
// anonymously via Safe rather than by analyzer block id.
func NewGuard(meta *ir.ScopeMetadata) *Guard {
	return &Guard{keys: newKeyring(), meta: meta}
}

// CreateBinding vaults a value: generates an independent key, encrypts
// the plaintext, and zeroizes the caller's buffer. Returns the opaque
// key handle. The plaintext will next exist only inside a safe scope.
func (g *Guard) CreateBinding(name string, plaintext []byte) (string, error) {
	return g.keys.seal(name, plaintext)
}

// DestroyBinding zeroizes the binding's key. Idempotent.
func (g *Guard) DestroyBinding(name string) {
	g.keys.destroy(name)
}

// KeyHandle returns the opaque handle of a binding's key.
func (g *Guard) KeyHandle(name string) (string, bool) {
	return g.keys.handleFor(name)
}

// Close zeroizes every key the guard owns.
func (g *Guard) Close() {
	g.keys.destroyAll()
}

// Safe runs fn inside an anonymous safe scope. Buffers the scope
// decrypts are zeroized on every exit path: normal return, error
// return, and panic (the deferred release runs before the panic
// propagates past the block).
func (g *Guard) Safe(fn func(*SafeScope) error) error {
	return g.enter("", nil, fn)
}

// EnterBlock runs fn inside the safe scope identified by an analyzer
// block id, pre-decrypting the bindings the analyzer recorded as live
// in that block.
func (g *Guard) EnterBlock(blockID string, fn func(*SafeScope) error) error {
	return g.enter(blockID, nil, fn)
}

func (g *Guard) enter(blockID string, parent *SafeScope, fn func(*SafeScope) error) (err error) {
	s := &SafeScope{
		guard:   g,
		parent:  parent,
		id:      blockID,
		buffers: make(map[string][]byte),
	}
	// The deferred release is the whole point: it runs on fall-through,
	// early return, and unwind alike, so no exit path can leave
	// plaintext behind.
	defer s.release()

	if blockID != "" && g.meta != nil {
		if info := g.meta.BlockByID(blockID); info != nil {
			for _, name := range info.Bindings {
				if _, err := s.Reveal(name); err != nil {
					return err
				}
			}
		}
	}
	return fn(s)
}

// SafeScope is one active safe block. It owns the plaintext buffers it
// decrypted and borrows, without owning, any buffer an enclosing scope
// already holds. Not safe for concurrent use: a scope is confined to
// the goroutine that entered it.
type SafeScope struct {
	guard   *Guard
	parent  *SafeScope
	id      string
	buffers map[string][]byte
	closed  bool
}

// BlockID returns the analyzer block id this scope was entered under,
// or "" for an anonymous scope.
func (s *SafeScope) BlockID() string {
	return s.id
}

// Reveal returns the plaintext of a vault binding, decrypting it into a
// buffer owned by this scope unless an enclosing active scope already
// holds it. Borrowed buffers stay valid until the owning (outermost)
// scope exits: an inner block's exit never zeroizes plaintext the outer
// block is still entitled to.
func (s *SafeScope) Reveal(name string) ([]byte, error) {
	if s.closed {
		return nil, &GuardError{Code: ErrCodeScopeClosed, Message: "safe scope already exited", Binding: name, Block: s.id}
	}
	for anc := s; anc != nil; anc = anc.parent {
		if buf, ok := anc.buffers[name]; ok {
			return buf, nil
		}
	}
	buf, err := s.guard.keys.open(name)
	if err != nil {
		return nil, err
	}
	s.buffers[name] = buf
	return buf, nil
}

// Nested runs fn inside a nested anonymous safe scope sharing this
// scope's buffers.
func (s *SafeScope) Nested(fn func(*SafeScope) error) error {
	if s.closed {
		return &GuardError{Code: ErrCodeScopeClosed, Message: "safe scope already exited", Block: s.id}
	}
	return s.guard.enter("", s, fn)
}

// NestedBlock runs fn inside a nested scope identified by an analyzer
// block id.
func (s *SafeScope) NestedBlock(blockID string, fn func(*SafeScope) error) error {
	if s.closed {
		return &GuardError{Code: ErrCodeScopeClosed, Message: "safe scope already exited", Block: s.id}
	}
	return s.guard.enter(blockID, s, fn)
}

// Reseal re-encrypts a revealed buffer back into the binding under a
// fresh key, for blocks that mutate the secret. The old key is
// zeroized; the scope keeps no plaintext copy afterwards.
func (s *SafeScope) Reseal(name string) error {
	if s.closed {
		return &GuardError{Code: ErrCodeScopeClosed, Message: "safe scope already exited", Binding: name, Block: s.id}
	}
	buf, ok := s.buffers[name]
	if !ok {
		return newGuardError(ErrCodeUnknownBinding, name, "binding not revealed in this scope")
	}
	if _, err := s.guard.keys.seal(name, buf); err != nil {
		return err
	}
	delete(s.buffers, name) // seal zeroized buf
	return nil
}

// release zeroizes every buffer this scope owns. Runs exactly once,
// from the deferred call in enter.
func (s *SafeScope) release() {
	if s.closed {
		return
	}
	s.closed = true
	for _, buf := range s.buffers {
		Zeroize(buf)
	}
}
