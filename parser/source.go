package parser

import (
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadSource reads all of r as UTF-8 text. A leading byte order mark is
// dropped, and UTF-16 input marked by one is converted.
func ReadSource(r io.Reader) (string, error) {
	tr := unicode.BOMOverride(unicode.UTF8.NewDecoder())

	var sb strings.Builder
	if _, err := io.Copy(&sb, transform.NewReader(r, tr)); err != nil {
		return "", err
	}

	return sb.String(), nil
}
