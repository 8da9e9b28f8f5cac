package fairdata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var xmlName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

func validName(s string) bool {
	return xmlName.MatchString(s) && !strings.HasPrefix(strings.ToLower(s), "xml")
}

// MarshalXML renders a generic JSON value under an element named root.
// Object members are written in key order, list entries as <item> and keys
// that are not XML names as <key name="...">.
func MarshalXML(root string, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "\t")
	if err := encodeXML(enc, root, v); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeXML(enc *xml.Encoder, name string, v any) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if !validName(name) {
		start = xml.StartElement{
			Name: xml.Name{Local: "key"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: name}},
		}
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := encodeXML(enc, k, t[k]); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range t {
			if err := encodeXML(enc, "item", item); err != nil {
				return err
			}
		}
	case nil:
	default:
		if err := enc.EncodeToken(xml.CharData(scalar(t))); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
