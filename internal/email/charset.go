package email

import (
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// charsetStep is one row of the body decoding table. ok=false moves on to the next row.
type charsetStep struct {
	name   string
	decode func(b []byte, declared string) (string, bool)
}

// charsetChain is tried top to bottom; the last row always succeeds.
var charsetChain = []charsetStep{
	{name: "declared", decode: decodeDeclared},
	{name: "utf-8", decode: decodeUTF8},
	{name: "iso-8859-1", decode: decodeLatin1},
}

// decodeText converts b to a UTF-8 string using the declared charset when it works,
// then UTF-8, then ISO-8859-1. It never fails.
func decodeText(b []byte, declared string) string {
	s, _ := decodeTextStep(b, declared)
	return s
}

// decodeTextStep is decodeText that also reports which row produced the result.
func decodeTextStep(b []byte, declared string) (string, string) {
	for _, step := range charsetChain {
		if s, ok := step.decode(b, declared); ok {
			return s, step.name
		}
	}
	return strings.ToValidUTF8(string(b), "�"), "lossy"
}

func decodeDeclared(b []byte, declared string) (string, bool) {
	label := strings.TrimSpace(declared)
	if label == "" {
		return "", false
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", false
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		// x/text substitutes U+FFFD for bad input; a mislabelled body should fall through instead.
		return string(b), utf8.Valid(b)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func decodeUTF8(b []byte, _ string) (string, bool) {
	return string(b), utf8.Valid(b)
}

func decodeLatin1(b []byte, _ string) (string, bool) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(out), true
}

var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unhandled charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	},
}

// decodeHeader decodes RFC 2047 encoded words. When decoding fails the raw value is
// kept as is, minus any byte sequences that are not valid UTF-8.
func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		decoded = value
	}
	return strings.ToValidUTF8(decoded, "")
}
