package emv

import (
	"fmt"
	"strconv"
	"strings"
)

// Field is one ID-length-value element
type Field struct {
	ID    string
	Value string
}

func (f Field) encode() (string, error) {
	if len(f.ID) != 2 {
		return "", fmt.Errorf("field id %q must be two digits", f.ID)
	}
	if len(f.Value) > 99 {
		return "", fmt.Errorf("field %s is %d bytes, max 99", f.ID, len(f.Value))
	}
	return fmt.Sprintf("%s%02d%s", f.ID, len(f.Value), f.Value), nil
}

func encodeFields(fields []Field) (string, error) {
	var sb strings.Builder
	for _, f := range fields {
		s, err := f.encode()
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// decodeFields splits s into consecutive TLV elements
func decodeFields(s string) ([]Field, error) {
	var fields []Field
	for i := 0; i < len(s); {
		if i+4 > len(s) {
			return nil, fmt.Errorf("truncated field header at offset %d", i)
		}
		id := s[i : i+2]
		n, err := strconv.Atoi(s[i+2 : i+4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad length for field %s at offset %d", id, i)
		}
		if i+4+n > len(s) {
			return nil, fmt.Errorf("field %s overruns payload", id)
		}
		fields = append(fields, Field{ID: id, Value: s[i+4 : i+4+n]})
		i += 4 + n
	}
	return fields, nil
}
