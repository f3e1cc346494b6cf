package tsdemux

import "github.com/asticode/go-astikit"

// Right now we use a global logger because it feels weird to inject a logger in pure functions.
// Indeed, logger is only needed to let the developer know when an unhandled descriptor, PID or
// malformed section was found in the stream; it never changes demuxer behavior.
var logger = astikit.AdaptStdLogger(nil)

// SetLogger replaces the package-level logger. Pass nil to silence it.
func SetLogger(l astikit.StdLogger) { logger = astikit.AdaptStdLogger(l) }
