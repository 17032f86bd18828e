package chunker

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// fallbackChain is tried in order; the first encoding whose decode produces
// valid UTF-8 without substitution wins. If none does, DecodeText falls back
// to UTF-8 with every invalid sequence replaced by U+FFFD, so it always
// returns something.
var fallbackChain = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-8-bom", unicode.UTF8BOM},
	{"latin-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
}

// DecodeText applies the UTF-8 -> UTF-8-BOM -> Latin-1 -> CP-1252 ->
// ISO-8859-1 -> UTF-8-with-replacement fallback chain spec.md requires,
// returning the decoded text and the name of the encoding that succeeded.
func DecodeText(content []byte) (string, string) {
	if utf8.Valid(content) {
		return string(content), "utf-8"
	}

	for _, candidate := range fallbackChain {
		decoded, err := candidate.enc.NewDecoder().Bytes(content)
		if err == nil && utf8.Valid(decoded) && !bytes.ContainsRune(decoded, utf8.RuneError) {
			return string(decoded), candidate.name
		}
	}

	return strings.ToValidUTF8(string(content), "�"), "utf-8-replacement"
}
