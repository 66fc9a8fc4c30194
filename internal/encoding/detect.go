// Package encoding normalises uploaded bank statements to UTF-8.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names a supported source encoding.
type Charset string

const (
	UTF8        Charset = "UTF-8"
	UTF8BOM     Charset = "UTF-8 (BOM)"
	UTF16LE     Charset = "UTF-16LE"
	UTF16BE     Charset = "UTF-16BE"
	Windows1252 Charset = "windows-1252"
	ISO88599    Charset = "ISO-8859-9"
	ISO885915   Charset = "ISO-8859-15"
)

// sniffSize is how much of the stream Detect looks at.
const sniffSize = 4096

var boms = []struct {
	prefix  []byte
	charset Charset
}{
	{[]byte{0xEF, 0xBB, 0xBF}, UTF8BOM},
	{[]byte{0xFF, 0xFE}, UTF16LE},
	{[]byte{0xFE, 0xFF}, UTF16BE},
}

var decoders = map[Charset]xenc.Encoding{
	UTF16LE:     unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	UTF16BE:     unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	Windows1252: charmap.Windows1252,
	ISO88599:    charmap.ISO8859_9,
	ISO885915:   charmap.ISO8859_15,
}

// chardetNames maps chardet results onto the charsets we can decode.
var chardetNames = map[string]Charset{
	"UTF-8":        UTF8,
	"ISO-8859-1":   Windows1252,
	"windows-1252": Windows1252,
	"ISO-8859-9":   ISO88599,
	"ISO-8859-15":  ISO885915,
}

// Detect guesses the charset of head, the leading bytes of a document.
// Byte order marks win, then valid UTF-8, then chardet. Anything else is
// treated as Windows-1252, which is what most bank exports use.
func Detect(head []byte) Charset {
	for _, b := range boms {
		if bytes.HasPrefix(head, b.prefix) {
			return b.charset
		}
	}

	if validUTF8(head) {
		return UTF8
	}

	if result, err := chardet.NewTextDetector().DetectBest(head); err == nil {
		if cs, ok := chardetNames[result.Charset]; ok {
			return cs
		}
	}

	return Windows1252
}

// validUTF8 ignores a truncated rune at the end of b, since a sniff window
// can end mid-character.
func validUTF8(b []byte) bool {
	cut := len(b)

	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				cut = i
			}

			break
		}
	}

	return utf8.Valid(b[:cut])
}

// ToUTF8 returns a reader yielding r decoded to UTF-8, along with the charset
// that was detected.
func ToUTF8(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	cs := Detect(head)

	switch cs {
	case UTF8:
		return br, cs, nil
	case UTF8BOM:
		_, _ = br.Discard(3)
		return br, cs, nil
	}

	return transform.NewReader(br, decoders[cs].NewDecoder()), cs, nil
}
