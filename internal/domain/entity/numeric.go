package entity

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// NumericString cantidad que el backend envía como número o como string numérico.
type NumericString string

// UnmarshalJSON acepta 12, 12.5, "12" y null.
func (n *NumericString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumericString(strings.TrimSpace(s))
		return nil
	}
	*n = NumericString(b)
	return nil
}

// Float devuelve el valor numérico; ok=false si no es parseable.
func (n NumericString) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
