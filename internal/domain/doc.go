// Package domain models storm risk readings and the SOS alert dispatch policy.
//
// # Risk Levels
//
// A reading is a (latitude, longitude, sea-level pressure) triple. A classifier
// maps it onto a four-step ordinal scale:
//
//	SAFE (0) < DEPRESSION (1) < STORM (2) < CYCLONE (3)
//
// Levels at or above STORM are "high risk": alert wording switches to the
// urgent form and a one-line safety hint is appended to the text message.
// A classifier that cannot produce a result returns
// [ErrClassificationUnavailable]; callers must never substitute SAFE.
//
// # Recipients
//
// Recipients are phone-number-shaped strings. A recipient is valid when its
// trimmed length is strictly greater than the configured minimum (default
// [DefaultMinRecipientLength]). No E.164 parsing is attempted; the provider
// is the final judge of whether a number is reachable.
//
// # Alert Wording
//
// Each recipient receives an English text message and, when voice is enabled,
// a spoken announcement in the local language (Hindi, "hi-IN", by default):
//
//	text:  "SOS ALERT: CYCLONE detected at Visakhapatnam. Pressure: 982 hPa. Follow safety steps!"
//	voice: "Saavdhan! Visakhapatnam mein chakravaat ka khatra hai."
//
// The text is the delivery-critical part. The voice call is best-effort and
// its failure never fails the recipient.
//
// # Outcomes
//
// Every valid recipient in a dispatch ends in exactly one [OutcomeStatus]:
// delivered, simulated (no provider credentials configured) or failed. A
// failed outcome surfaces the reason from the last channel tried; the ordered
// attempt list keeps the earlier ones for diagnostics.
package domain
