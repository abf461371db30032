// Package security checks names taken from dataset annotations before they
// become file paths or object keys.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
)

// maxFilenameLen bounds the result of SanitizeFilename and FilenameStem.
const maxFilenameLen = 128

// ErrUnsafePath is returned for names that would leave their root.
var ErrUnsafePath = errors.New("unsafe path")

// ValidateName checks that name, joined under any root directory or key
// prefix, stays inside it. "." names the root itself.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnsafePath)
	}
	slashed := strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(slashed) {
		return fmt.Errorf("%w: %s is absolute", ErrUnsafePath, name)
	}
	clean := path.Clean(slashed)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %s escapes its root", ErrUnsafePath, name)
	}
	return nil
}

// SanitizeFilename makes a safe filename from an arbitrary string. It replaces
// any characters that are not ASCII letters, digits, dot, underscore or dash
// with an underscore and collapses repeated underscores. The result is
// limited to 128 bytes.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "unknown"
	}
	return out
}

// FilenameStem returns s when it is already a safe filename. Otherwise it
// returns SanitizeFilename(s) followed by "_" and eight hex digits of the
// SHA-256 of s, so distinct inputs do not share a stem. The stem fits in
// 128 bytes.
func FilenameStem(s string) string {
	clean := SanitizeFilename(s)
	if clean == s {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	suffix := "_" + hex.EncodeToString(sum[:4])
	clean = strings.TrimRight(clean[:min(len(clean), maxFilenameLen-len(suffix))], "_")
	return clean + suffix
}
