// Package engine implements the vault runtime guard.
//
// The guard owns one encryption key per vault binding, generated at
// binding creation and never persisted outside process memory. Plaintext
// exists only inside an active safe scope: entering a scope decrypts the
// bindings it needs into short-lived buffers, and every exit path
// (normal fall-through, early return, panic) zeroizes the buffers the
// scope owns before control leaves it.
//
// Access control is NOT this package's job: the static vault analyzer
// has already proven scoping before code runs, so the guard performs no
// permission re-checking. Its sole responsibility is key lifecycle and
// buffer hygiene.
//
// Concurrency: a Guard is safe for concurrent use, but each SafeScope is
// confined to the goroutine that entered it. Plaintext buffers are never
// shared across scopes of different goroutines, and there is no global
// key store: keys live in the Guard instance that created them.
package engine
