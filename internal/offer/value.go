package offer

// Value is a typed field value. Exactly one payload pointer matching Kind is
// set; a field with no usable value is absent from the FieldMap instead.
type Value struct {
	Kind   Type     `json:"kind"`
	Bool   *bool    `json:"bool,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Text   *string  `json:"text,omitempty"`
	List   []string `json:"list,omitempty"`
}

// FieldMap holds the typed values of one offer keyed by catalog code.
type FieldMap map[string]Value

func BoolValue(b bool) Value {
	return Value{Kind: TypeBoolean, Bool: &b}
}

func NumberValue(n float64) Value {
	return Value{Kind: TypeNumber, Number: &n}
}

func TextValue(s string) Value {
	return Value{Kind: TypeText, Text: &s}
}

func ListValue(items []string) Value {
	return Value{Kind: TypeList, List: items}
}

// Interface returns the plain Go value (bool, float64, string or []string), or
// nil when the payload for Kind is missing.
func (v Value) Interface() any {
	switch v.Kind {
	case TypeBoolean:
		if v.Bool != nil {
			return *v.Bool
		}
	case TypeNumber:
		if v.Number != nil {
			return *v.Number
		}
	case TypeText:
		if v.Text != nil {
			return *v.Text
		}
	case TypeList:
		if v.List != nil {
			return v.List
		}
	}
	return nil
}

// Get returns the plain value for code, or nil.
func (m FieldMap) Get(code string) any {
	v, ok := m[code]
	if !ok {
		return nil
	}
	return v.Interface()
}
