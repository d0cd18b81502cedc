package internal

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"
)

// Version of kotoba
const Version = "0.4.0"

// MediaFilename derives a stable media file name from the spoken text.
// Format: prefix_md5(text)[:8].ext
func MediaFilename(prefix, text, ext string) string {
	hash := md5.Sum([]byte(text))
	return prefix + "_" + hex.EncodeToString(hash[:])[:8] + "." + ext
}

// SanitizeFilename creates a safe filename from a string. Letters of any
// script are kept; everything else becomes an underscore.
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
