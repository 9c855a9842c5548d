// Package intent classifies free-text chat input into one of a fixed set of
// audit intents.
//
// Classification runs two passes over an ordered list of definitions: every
// pattern of every definition first, then keyword containment. The first hit
// wins in both passes, so reordering definitions changes results. Input that
// matches nothing is Help.
package intent
