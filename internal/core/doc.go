// Package core holds the customer register: records, the in-memory Store,
// the JSON and CSV codec, import reconciliation, the view projection and the
// Service that ties them to a durable storage slot.
//
// It has no knowledge of HTTP or the terminal. The web server and the CLI
// both drive a [Service].
//
// # Persistence
//
// The Service loads the slot once with [Service.Load]. A missing or corrupt
// slot never fails startup: the register starts empty and the problem is
// logged. After every effective mutation the full collection is written back
// as a compact JSON array. A failed write returns a [*WriteWarning] alongside
// the applied change; the in-memory Store stays authoritative.
//
// # Import
//
// Backups are decoded by [DecodeJSON] and combined with the Store by
// [Reconcile] under an explicit [ImportPolicy]:
//
//   - [PolicyReplace]: the file becomes the register.
//   - [PolicyMerge]: file records are appended, and any whose id is already
//     present are dropped. Existing records win.
//
// Individual records are decoded leniently (see [Customer.UnmarshalJSON]);
// only a file that is not a JSON array of objects is rejected, with a
// [*ParseError], and then nothing changes. An [ImportLimiter] caps how many
// imports buffer and decode files at once.
//
// # Errors
//
// [MapError] and [MapErrorLang] turn any error into a localized
// [UserMessage] with a reference code.
package core
