package dto

import (
	"encoding/json"
	"strings"
)

// NumericField captures a numeric request field verbatim, whether it arrived as a JSON number,
// a JSON string, a form value or a query parameter. Validation is left to the domain parsers.
type NumericField struct {
	Raw string
	Set bool
}

// UnmarshalJSON keeps the literal text of a number or the contents of a string
func (f *NumericField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = NumericField{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = NumericField{Raw: str, Set: true}
		return nil
	}
	*f = NumericField{Raw: s, Set: true}
	return nil
}

// UnmarshalParam implements echo.BindUnmarshaler for form and query values
func (f *NumericField) UnmarshalParam(param string) error {
	*f = NumericField{Raw: param, Set: true}
	return nil
}

func (f NumericField) String() string {
	return f.Raw
}
