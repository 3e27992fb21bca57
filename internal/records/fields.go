package records

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Text is a scalar column that the backend may serialise as a string or a number.
// Identifiers coming out of spreadsheets arrive as floats ("1234.0"), so the trailing
// ".0" is dropped and "nan" reads as empty.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(cleanID(s))
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*t = Text(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(cleanID(n.String()))
	}
	return nil
}

// String returns the value.
func (t Text) String() string { return string(t) }

func cleanID(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") {
		return ""
	}
	if i := strings.IndexByte(s, '.'); i > 0 {
		if strings.Trim(s[i+1:], "0") == "" && isDigits(s[:i]) {
			return s[:i]
		}
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// Time is a timestamp column tolerant of the formats the backend emits. Unparseable
// values keep their raw text so nothing is lost on display.
type Time struct {
	time.Time
	Raw string
}

// UnmarshalJSON accepts ISO timestamps, plain dates and null.
func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if errNum := json.Unmarshal(data, &n); errNum != nil {
			if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
				*t = Time{}
				return nil
			}
			return err
		}
		s = n.String()
	}
	*t = ParseTime(s)
	return nil
}

// MarshalJSON writes RFC 3339 or the raw text.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return json.Marshal(t.Raw)
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// ParseTime tries the known layouts in order.
func ParseTime(s string) Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nat") {
		return Time{}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return Time{Time: ts, Raw: s}
		}
	}
	return Time{Raw: s}
}

// At wraps t.
func At(t time.Time) Time {
	return Time{Time: t, Raw: t.Format(time.RFC3339)}
}

// Sent status tags.
const (
	TagEmail      = "email"
	TagCobro      = "cobro"
	TagCredencial = "credencial"
)

// SentSet is the append-only set of communications already issued for a row.
type SentSet []string

// Has reports whether tag was recorded.
func (s SentSet) Has(tag string) bool {
	for _, v := range s {
		if v == tag {
			return true
		}
	}
	return false
}

// With returns the set with tag appended once. The receiver is never modified.
func (s SentSet) With(tag string) SentSet {
	if tag == "" || s.Has(tag) {
		return s
	}
	out := make(SentSet, 0, len(s)+1)
	out = append(out, s...)
	return append(out, tag)
}

// TagForAction maps an action name from the sent-items log to a sent status tag.
func TagForAction(action string) string {
	a := strings.ToLower(strings.TrimSpace(action))
	switch {
	case a == "":
		return ""
	case strings.Contains(a, "cobro"), strings.Contains(a, "payment"), strings.Contains(a, "pago"):
		return TagCobro
	case strings.Contains(a, "credencial"), strings.Contains(a, "credential"):
		return TagCredencial
	case strings.Contains(a, "email"), strings.Contains(a, "correo"), strings.Contains(a, "mail"):
		return TagEmail
	default:
		return a
	}
}

// HistoryEntry is one line of a res history, newest first.
type HistoryEntry struct {
	Timestamp Time   `json:"timestamp"`
	Details   string `json:"details"`
}
