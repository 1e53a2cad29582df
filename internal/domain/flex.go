package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The reports backend is not consistent about scalar encodings: job numbers
// arrive as numbers on one endpoint and strings on another, department ids as
// "16" or 16, dates with or without a time part. These types accept all of
// them.

var jsonNull = []byte("null")

// FlexString decodes a JSON string or number into its textual form.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

// FlexInt decodes a JSON number or numeric string. Fractions are truncated.
type FlexInt int64

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	f, err := parseFlexNumber(b)
	if err != nil {
		return fmt.Errorf("flex int: %w", err)
	}
	*n = FlexInt(f)
	return nil
}

// FlexFloat decodes a JSON number or numeric string; money columns use it.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	v, err := parseFlexNumber(b)
	if err != nil {
		return fmt.Errorf("flex float: %w", err)
	}
	*f = FlexFloat(v)
	return nil
}

func parseFlexNumber(b []byte) (float64, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		return 0, nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return 0, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return 0, nil
		}
	}
	return strconv.ParseFloat(raw, 64)
}

// FlexBool decodes true/false, 0/1 and their string forms.
type FlexBool bool

func (v *FlexBool) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		*v = false
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		*v = true
	case "false", "0", "no", "":
		*v = false
	default:
		return fmt.Errorf("flex bool: unexpected value %q", raw)
	}
	return nil
}

// Date is a nullable timestamp. The zero value means "not set".
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses any of the layouts the backend has been seen to emit.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("unrecognised date %q", s)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return jsonNull, nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// jsonUnmarshalArray decodes b into out when b is a JSON array and leaves out
// untouched otherwise.
func jsonUnmarshalArray(b []byte, out any) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return nil
	}
	return json.Unmarshal(b, out)
}
