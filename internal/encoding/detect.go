// Package encoding normalizes uploaded text files (spreadsheet CSV exports in
// particular) to UTF-8 before they are parsed.
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

// Charset names the encoding ToUTF8 decided the input was in.
type Charset string

const (
	CharsetUTF8        Charset = "UTF-8"
	CharsetUTF16LE     Charset = "UTF-16LE"
	CharsetUTF16BE     Charset = "UTF-16BE"
	CharsetWindows1252 Charset = "windows-1252"
	CharsetISO88599    Charset = "ISO-8859-9"
)

const sniffLen = 4096

var boms = []struct {
	prefix  []byte
	charset Charset
}{
	{[]byte{0xEF, 0xBB, 0xBF}, CharsetUTF8},
	{[]byte{0xFF, 0xFE}, CharsetUTF16LE},
	{[]byte{0xFE, 0xFF}, CharsetUTF16BE},
}

// ToUTF8 sniffs the head of r and returns a reader yielding UTF-8.
// A byte order mark wins, then plain UTF-8 validity, then chardet's best
// guess; anything unrecognised is treated as Windows-1252, which is what
// spreadsheet tools on Windows emit by default.
func ToUTF8(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, sniffLen)

	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	for _, b := range boms {
		if !bytes.HasPrefix(head, b.prefix) {
			continue
		}

		if b.charset == CharsetUTF8 {
			_, _ = br.Discard(len(b.prefix))
			return br, CharsetUTF8, nil
		}

		return decode(br, b.charset), b.charset, nil
	}

	if utf8.Valid(head) {
		return br, CharsetUTF8, nil
	}

	charset := guess(head)

	return decode(br, charset), charset, nil
}

func guess(head []byte) Charset {
	result, err := chardet.NewTextDetector().DetectBest(head)
	if err != nil {
		return CharsetWindows1252
	}

	switch result.Charset {
	case "UTF-8":
		return CharsetUTF8
	case "ISO-8859-9":
		return CharsetISO88599
	default:
		return CharsetWindows1252
	}
}

func decode(r io.Reader, charset Charset) io.Reader {
	var dec *xenc.Decoder

	switch charset {
	case CharsetUTF8:
		return r
	case CharsetUTF16LE:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case CharsetUTF16BE:
		dec = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case CharsetISO88599:
		dec = charmap.ISO8859_9.NewDecoder()
	default:
		dec = charmap.Windows1252.NewDecoder()
	}

	return transform.NewReader(r, dec)
}
