package csv

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StripBOM decodes b as UTF-8, dropping a leading byte-order mark if present.
// Spreadsheet exports commonly prepend one, which would otherwise end up in the
// first header cell and hide the "Date" column.
func StripBOM(b []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), b)
	if err != nil {
		return nil, fmt.Errorf("decode utf-8: %w", err)
	}
	return out, nil
}
