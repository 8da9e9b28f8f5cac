package tag

import (
	"encoding/json"
	"fmt"
)

// String returns a string representation of the Tag (GGGG,EEEE)
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// Hex returns the 8-hex-digit form used by rule tables, e.g. 00100010
func (t Tag) Hex() string {
	return fmt.Sprintf("%04X%04X", t.Group, t.Element)
}

// MarshalJSON returns a JSON representation of the Tag
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// MarshalText writes the hex form, so tags read back from yaml rule files
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.Hex()), nil
}

// UnmarshalText accepts either form accepted by Parse
func (t *Tag) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalJSON is the inverse of MarshalJSON
func (t *Tag) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}
