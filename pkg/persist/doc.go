// Package persist defines persistence-facing contracts for saving and
// restoring serialized navigation paths, plus a small keeper that bridges
// byte payloads and the core stack container.
//
// Responsibilities:
//   - Store only loads/saves one serialized path payload for a single Ref.
//   - Keeper[T] marshals a stack on the way out and rebuilds it through an
//     identifier generator (optionally a hydrate decoder) on the way in.
//   - The core navstack package remains persistence-agnostic; all storage
//     logic stays behind Store implementations supplied by consumers.
//
// Identity is not preserved across a save/load cycle: restored elements are
// re-appended through the caller's generator and receive fresh identifiers,
// with an empty mounted set. Meta.ETag gives optimistic concurrency for
// concurrent writers sharing one session.
package persist
