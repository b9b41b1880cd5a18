package extract

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf16"
)

// decodeContentStream recovers the text shown by a page content stream.
// It understands the text-showing operators (Tj, TJ, ' and ") and uses the
// positioning operators to break lines. Font encodings are not consulted, so
// glyphs from embedded CID fonts without a byte-compatible encoding come out
// as noise or not at all.
func decodeContentStream(src []byte) string {
	d := &contentDecoder{src: src}
	d.run()
	return collapseLines(d.out.String())
}

// TJ kerning adjustments below this (in thousandths of an em) read as a space.
const kernSpace = -180

type contentDecoder struct {
	src     []byte
	pos     int
	out     strings.Builder
	strs    []string
	nums    []float64
	inArray bool
}

func (d *contentDecoder) run() {
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		switch {
		case isPDFSpace(c):
			d.pos++
		case c == '%':
			for d.pos < len(d.src) && d.src[d.pos] != '\n' && d.src[d.pos] != '\r' {
				d.pos++
			}
		case c == '(':
			d.strs = append(d.strs, decodePDFBytes(d.literal()))
		case c == '<':
			if d.pos+1 < len(d.src) && d.src[d.pos+1] == '<' {
				d.pos += 2
				continue
			}
			d.strs = append(d.strs, decodePDFBytes(d.hexString()))
		case c == '[':
			d.inArray = true
			d.pos++
		case c == ']':
			d.inArray = false
			d.pos++
		case c == '/':
			d.pos++
			d.word()
		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			f, err := strconv.ParseFloat(d.word(), 64)
			if err != nil {
				continue
			}
			if d.inArray {
				if f < kernSpace && len(d.strs) > 0 {
					d.strs = append(d.strs, " ")
				}
			} else {
				d.nums = append(d.nums, f)
			}
		default:
			op := d.word()
			if op == "" {
				d.pos++
				continue
			}
			d.operator(op)
		}
	}
}

func (d *contentDecoder) operator(op string) {
	switch op {
	case "Tj", "TJ":
		d.emit()
	case "'", `"`:
		d.newline()
		d.emit()
	case "T*", "Tm", "ET":
		d.newline()
	case "Td", "TD":
		if n := len(d.nums); n >= 2 && d.nums[n-1] != 0 {
			d.newline()
		} else {
			d.space()
		}
	case "BI":
		d.skipInlineImage()
	}
	d.strs = d.strs[:0]
	d.nums = d.nums[:0]
}

func (d *contentDecoder) emit() {
	for _, s := range d.strs {
		d.out.WriteString(s)
	}
}

func (d *contentDecoder) newline() {
	s := d.out.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		d.out.WriteByte('\n')
	}
}

func (d *contentDecoder) space() {
	s := d.out.String()
	if s != "" && !strings.HasSuffix(s, "\n") && !strings.HasSuffix(s, " ") {
		d.out.WriteByte(' ')
	}
}

// word consumes a run of regular characters.
func (d *contentDecoder) word() string {
	start := d.pos
	for d.pos < len(d.src) && !isPDFSpace(d.src[d.pos]) && !isPDFDelimiter(d.src[d.pos]) {
		d.pos++
	}
	return string(d.src[start:d.pos])
}

// literal consumes a parenthesised string starting at d.pos.
func (d *contentDecoder) literal() []byte {
	var buf []byte
	depth := 1
	d.pos++
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		d.pos++
		switch c {
		case '\\':
			if d.pos >= len(d.src) {
				return buf
			}
			e := d.src[d.pos]
			d.pos++
			switch e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '\r':
				if d.pos < len(d.src) && d.src[d.pos] == '\n' {
					d.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && d.pos < len(d.src) && d.src[d.pos] >= '0' && d.src[d.pos] <= '7'; i++ {
						v = v*8 + int(d.src[d.pos]-'0')
						d.pos++
					}
					buf = append(buf, byte(v))
				} else {
					buf = append(buf, e)
				}
			}
		case '(':
			depth++
			buf = append(buf, c)
		case ')':
			depth--
			if depth == 0 {
				return buf
			}
			buf = append(buf, c)
		default:
			buf = append(buf, c)
		}
	}
	return buf
}

// hexString consumes a <...> string starting at d.pos.
func (d *contentDecoder) hexString() []byte {
	d.pos++
	var digits []byte
	for d.pos < len(d.src) && d.src[d.pos] != '>' {
		if c := d.src[d.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		d.pos++
	}
	d.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, hex.DecodedLen(len(digits)))
	n, err := hex.Decode(out, digits)
	if err != nil {
		return out[:n]
	}
	return out
}

// skipInlineImage jumps past the binary data between ID and EI.
func (d *contentDecoder) skipInlineImage() {
	idx := bytes.Index(d.src[d.pos:], []byte("ID"))
	if idx < 0 {
		d.pos = len(d.src)
		return
	}
	d.pos += idx + 2
	for {
		idx = bytes.Index(d.src[d.pos:], []byte("EI"))
		if idx < 0 {
			d.pos = len(d.src)
			return
		}
		at := d.pos + idx
		d.pos = at + 2
		before := at == 0 || isPDFSpace(d.src[at-1])
		after := d.pos >= len(d.src) || isPDFSpace(d.src[d.pos])
		if before && after {
			return
		}
	}
}

// decodePDFBytes maps string operand bytes to text. UTF-16BE with a byte
// order mark is honoured, two-byte codes with a zero high byte are read as
// ASCII, and anything else is treated as Latin-1.
func decodePDFBytes(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		units := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return printable(string(utf16.Decode(units)))
	}

	if len(b) >= 2 && len(b)%2 == 0 {
		wide := true
		for i := 0; i < len(b); i += 2 {
			if b[i] != 0 {
				wide = false
				break
			}
		}
		if wide {
			narrow := make([]byte, 0, len(b)/2)
			for i := 1; i < len(b); i += 2 {
				narrow = append(narrow, b[i])
			}
			b = narrow
		}
	}

	runes := make([]rune, 0, len(b))
	for _, c := range b {
		runes = append(runes, rune(c))
	}
	return printable(string(runes))
}

func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
