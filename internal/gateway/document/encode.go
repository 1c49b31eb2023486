package document

import (
	"encoding/xml"
	"fmt"

	"observe/internal/domain"
)

const indent = "    "

// Encode renders v as an indented XML document with a declaration.
// Output depends only on v, so equal documents encode to equal bytes.
func Encode(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", indent)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %T: %v", domain.ErrInternal, v, err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	return append(out, '\n'), nil
}
