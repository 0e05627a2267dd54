// Package smsguard provides SMS phishing detection. The primary type in this package
// is the Detector, which scores a message against weighted phrase tables (see the lexicon package)
// and returns a phishcheck.Result with verdict, confidence and human-readable indicators.
//
// The Detector is immutable after construction and safe for concurrent usage.
//
// Scoring is deterministic:
//
//   - every urgency phrase found in the lowercased message adds 0.30,
//     every financial phrase adds 0.25, each with its own indicator.
//
//   - any url marker ("http", "www.", ".com") adds 0.20 once, any sender marker
//     ("bank", "paypal", "amazon") adds 0.15 once.
//
//   - a length term (runes mod 10) / 100 is added, the total is clamped to 1.0 and
//     the message is phishing if the score is above 0.6.
//
//   - a single confidence tier indicator is appended for scores above 0.7, 0.8 or 0.9.
//
// Registry holds at most one initialized Detector and publishes it atomically. Default is the
// process-wide registry used by the C ABI (see the ffi package). Registry.Initialize is idempotent,
// the first successful call wins and later calls are no-ops.
package smsguard
