// Package pathutil validates the raw byte names carried inside a decoded
// payload before they are turned into filesystem paths.
//
// Adapted from the teacher's pathutil.Normalize: that function validated a
// WiC64 wire-protocol path segment (rejecting '..', NUL, control
// characters, and reserved device names) before resolving it against a
// sandboxed root. Payload names here come from the same place — untrusted,
// attacker-controlled bytes decoded from a steganographic payload — so the
// same defensive shape applies, trimmed down to what a single path
// component actually needs.
package pathutil

import (
	"bytes"
	"fmt"
)

// SanitizeName validates a single file or directory name decoded from a
// payload. It rejects anything that could escape the directory it is about
// to be written into.
func SanitizeName(name []byte) error {
	if len(name) == 0 {
		return fmt.Errorf("pathutil: empty name")
	}
	if bytes.ContainsRune(name, 0) {
		return fmt.Errorf("pathutil: name contains a NUL byte")
	}
	if bytes.ContainsAny(name, "/\\") {
		return fmt.Errorf("pathutil: name %q contains a path separator", name)
	}
	s := string(name)
	if s == "." || s == ".." {
		return fmt.Errorf("pathutil: name %q is not allowed", s)
	}
	return nil
}
