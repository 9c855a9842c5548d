// Package router answers free-text audit questions.
//
// A Router classifies the input with the intent package, hands the intent
// and its parameter to a Dispatcher which runs exactly one store query, and
// renders the resulting Envelope through a Formatter into display text and
// a typed payload. Store failures never escape: they are logged and turned
// into a generic error envelope.
//
// Sessions keep a transcript and serialize their own inputs. Independent
// sessions are handled concurrently.
package router
