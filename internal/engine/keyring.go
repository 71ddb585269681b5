package engine

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

const keySize = 32 // AES-256

// sealedBinding is one vault binding at rest: an independently generated
// key plus the AES-GCM ciphertext of the binding's value. Keys are never
// derived from a shared master secret, so destroying one binding cannot
// weaken another.
type sealedBinding struct {
	name       string
	handle     string // opaque key handle, never the key itself
	key        []byte
	ciphertext []byte // nonce-prefixed
	destroyed  bool
}

// keyring holds the sealed bindings of one guard instance. There is no
// process-global keyring: keys live and die with their guard.
type keyring struct {
	mu       sync.Mutex
	bindings map[string]*sealedBinding
}

func newKeyring() *keyring {
	return &keyring{bindings: make(map[string]*sealedBinding)}
}

// seal generates a fresh key for name and encrypts plaintext under it.
// The caller's plaintext buffer is zeroized before seal returns: once a
// value is vaulted, the only plaintext copy lives inside a safe scope.
func (k *keyring) seal(name string, plaintext []byte) (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate key for %q: %w", name, err)
	}

	aead, err := newAEAD(key)
	if err != nil {
		Zeroize(key)
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		Zeroize(key)
		return "", fmt.Errorf("generate nonce for %q: %w", name, err)
	}

	ct := aead.Seal(nonce, nonce, plaintext, []byte(name))
	Zeroize(plaintext)

	sb := &sealedBinding{
		name:       name,
		handle:     uuid.NewString(),
		key:        key,
		ciphertext: ct,
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if prev, ok := k.bindings[name]; ok {
		Zeroize(prev.key)
	}
	k.bindings[name] = sb
	return sb.handle, nil
}

// open decrypts the named binding into a fresh buffer owned by the
// calling scope.
//
// The destroyed check and the key/ciphertext reads happen under the
// lock: destroy and a concurrent re-seal zeroize the stored key in
// place, so decryption works on private copies taken while it was
// still intact.
func (k *keyring) open(name string) ([]byte, error) {
	k.mu.Lock()
	sb, ok := k.bindings[name]
	if !ok {
		k.mu.Unlock()
		return nil, newGuardError(ErrCodeUnknownBinding, name, "vault binding not created on this guard")
	}
	if sb.destroyed {
		k.mu.Unlock()
		return nil, newGuardError(ErrCodeKeyDestroyed, name, "vault binding key has been destroyed")
	}
	key := make([]byte, len(sb.key))
	copy(key, sb.key)
	ct := make([]byte, len(sb.ciphertext))
	copy(ct, sb.ciphertext)
	k.mu.Unlock()
	defer Zeroize(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	ns := aead.NonceSize()
	if len(ct) < ns {
		return nil, newGuardError(ErrCodeDecryptFailed, name, "ciphertext truncated")
	}
	pt, err := aead.Open(nil, ct[:ns], ct[ns:], []byte(name))
	if err != nil {
		return nil, newGuardError(ErrCodeDecryptFailed, name, "ciphertext authentication failed")
	}
	return pt, nil
}

// destroy zeroizes the binding's key, making its ciphertext permanently
// unreadable. Idempotent.
func (k *keyring) destroy(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if sb, ok := k.bindings[name]; ok && !sb.destroyed {
		Zeroize(sb.key)
		sb.destroyed = true
	}
}

// destroyAll zeroizes every key. Called when the guard shuts down.
func (k *keyring) destroyAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, sb := range k.bindings {
		if !sb.destroyed {
			Zeroize(sb.key)
			sb.destroyed = true
		}
	}
}

// handle returns the opaque key handle for a binding.
func (k *keyring) handleFor(name string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	sb, ok := k.bindings[name]
	if !ok {
		return "", false
	}
	return sb.handle, true
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init GCM: %w", err)
	}
	return aead, nil
}
