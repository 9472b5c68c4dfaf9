package id

import "github.com/google/uuid"

// ConnID returns a short correlation token for one accepted connection,
// prefixed into every log line that connection produces.
func ConnID() string { return "conn-" + uuid.New().String()[:8] }
