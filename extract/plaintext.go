package extract

import (
	"bytes"
	"context"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainText returns an extractor for UTF-8 text. Invalid sequences are
// replaced rather than rejected.
func PlainText() Extractor {
	return ExtractorFunc(func(_ context.Context, data []byte) (string, error) {
		data = bytes.TrimPrefix(data, utf8BOM)
		text := strings.ToValidUTF8(string(data), "\uFFFD")
		return strings.ReplaceAll(text, "\r\n", "\n"), nil
	})
}
