package persistence

import (
	"encoding/xml"
	"strconv"

	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

// xmlDocument mirrors the persisted wire format exactly:
//
//	<PersistentData application="NAME">
//	  <variable name="PATH" type="TYPE">
//	    <val i="INDEX" v="VALUE"/>
//	  </variable>
//	</PersistentData>
type xmlDocument struct {
	XMLName     xml.Name      `xml:"PersistentData"`
	Application string        `xml:"application,attr"`
	Variables   []xmlVariable `xml:"variable"`
}

type xmlVariable struct {
	Name   string     `xml:"name,attr"`
	Type   string     `xml:"type,attr"`
	Values []xmlValue `xml:"val"`
}

type xmlValue struct {
	Index int    `xml:"i,attr"`
	Value string `xml:"v,attr"`
}

// parseElementType is the inverse of types.ElementType.String.
func parseElementType(s string) (types.ElementType, bool) {
	switch s {
	case "int8":
		return types.Int8, true
	case "uint8":
		return types.Uint8, true
	case "int16":
		return types.Int16, true
	case "uint16":
		return types.Uint16, true
	case "int32":
		return types.Int32, true
	case "uint32":
		return types.Uint32, true
	case "int64":
		return types.Int64, true
	case "uint64":
		return types.Uint64, true
	case "float":
		return types.Float32, true
	case "double":
		return types.Float64, true
	case "string":
		return types.String, true
	case "bool":
		return types.Bool, true
	default:
		return 0, false
	}
}

// formatValue renders a single payload element in the natural decimal
// representation for its type; encoding/xml escapes the result when it is
// written into an attribute, so string values need no manual escaping here.
func formatValue(elementType types.ElementType, v any) string {
	switch elementType {
	case types.Int8:
		return strconv.FormatInt(int64(v.(int8)), 10)
	case types.Uint8:
		return strconv.FormatUint(uint64(v.(uint8)), 10)
	case types.Int16:
		return strconv.FormatInt(int64(v.(int16)), 10)
	case types.Uint16:
		return strconv.FormatUint(uint64(v.(uint16)), 10)
	case types.Int32:
		return strconv.FormatInt(int64(v.(int32)), 10)
	case types.Uint32:
		return strconv.FormatUint(uint64(v.(uint32)), 10)
	case types.Int64:
		return strconv.FormatInt(v.(int64), 10)
	case types.Uint64:
		return strconv.FormatUint(v.(uint64), 10)
	case types.Float32:
		return strconv.FormatFloat(float64(v.(float32)), 'g', -1, 32)
	case types.Float64:
		return strconv.FormatFloat(v.(float64), 'g', -1, 64)
	case types.String:
		return v.(string)
	case types.Bool:
		return strconv.FormatBool(v.(bool))
	default:
		return ""
	}
}

// parseValue parses raw back into T. T must be the Go type corresponding to
// the ElementType that the caller has already confirmed matches, via
// LoadInto's type check; this function never needs to assert a mismatched
// type onto T.
func parseValue[T types.Element](raw string) (T, error) {
	var zero T
	switch any(zero).(type) {
	case int8:
		n, err := strconv.ParseInt(raw, 10, 8)
		if err != nil {
			return zero, err
		}
		return any(int8(n)).(T), nil
	case uint8:
		n, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			return zero, err
		}
		return any(uint8(n)).(T), nil
	case int16:
		n, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return zero, err
		}
		return any(int16(n)).(T), nil
	case uint16:
		n, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return zero, err
		}
		return any(uint16(n)).(T), nil
	case int32:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return zero, err
		}
		return any(int32(n)).(T), nil
	case uint32:
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return zero, err
		}
		return any(uint32(n)).(T), nil
	case int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return zero, err
		}
		return any(n).(T), nil
	case uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return zero, err
		}
		return any(n).(T), nil
	case float32:
		n, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return zero, err
		}
		return any(float32(n)).(T), nil
	case float64:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return zero, err
		}
		return any(n).(T), nil
	case string:
		return any(raw).(T), nil
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return zero, err
		}
		return any(b).(T), nil
	default:
		return zero, types.NewRuntimeError("parseValue", "unsupported element type")
	}
}
