package jtp

// None is a tag struct meaning that no value is expected to be sent or received,
// depending on where it's used.
type None struct{}

// Nil is a nil value with the empty type
var Nil *None = nil

// Raw is an opaque body sent and received as application/octet-stream
// rather than JSON.
type Raw []byte

const (
	contentJSON   = "application/json"
	contentBinary = "application/octet-stream"
)
