package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// AnswerValue is a submitted or correct answer. Single-choice and numeric
// answers hold one element, multi-choice answers hold the selected set.
//
// On the wire it accepts a JSON string, a JSON number, an array of either,
// or null. It marshals back as a string when it holds exactly one value.
// Any other JSON value decodes as a malformed answer that keeps the original
// JSON and is never graded correct.
type AnswerValue []string

// malformedMark prefixes the raw JSON of a malformed answer. U+FFFF is a
// noncharacter, so no option text legitimately starts with it.
const malformedMark = "\uffff"

// MalformedAnswer wraps raw JSON that is not a supported answer shape.
func MalformedAnswer(raw []byte) AnswerValue {
	return AnswerValue{malformedMark + string(raw)}
}

// Malformed reports whether the value was decoded from an unsupported shape.
func (v AnswerValue) Malformed() bool {
	return len(v) == 1 && strings.HasPrefix(v[0], malformedMark)
}

// Single returns the only value, or "" and false when the answer does not
// hold exactly one value.
func (v AnswerValue) Single() (string, bool) {
	if len(v) != 1 {
		return "", false
	}
	return v[0], true
}

// IsEmpty reports whether nothing was selected.
func (v AnswerValue) IsEmpty() bool {
	for _, s := range v {
		if s != "" {
			return false
		}
	}
	return true
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.Malformed() {
		raw := []byte(strings.TrimPrefix(v[0], malformedMark))
		if !json.Valid(raw) {
			return []byte("null"), nil
		}
		return raw, nil
	}
	switch len(v) {
	case 0:
		if v == nil {
			return []byte("null"), nil
		}
		return []byte("[]"), nil
	case 1:
		return json.Marshal(v[0])
	default:
		return json.Marshal([]string(v))
	}
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = nil
		return nil
	}

	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(AnswerValue, 0, len(items))
		for _, item := range items {
			s, err := scalarString(item)
			if errors.Is(err, errUnsupportedAnswer) {
				*v = MalformedAnswer(data)
				return nil
			}
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		*v = out
		return nil
	}

	s, err := scalarString(data)
	if errors.Is(err, errUnsupportedAnswer) {
		*v = MalformedAnswer(data)
		return nil
	}
	if err != nil {
		return err
	}
	*v = AnswerValue{s}
	return nil
}

var errUnsupportedAnswer = errors.New("answer must be a string, a number or a list of them")

func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errUnsupportedAnswer
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		// A string carrying the mark would be read back as malformed.
		if strings.HasPrefix(s, malformedMark) {
			return "", errUnsupportedAnswer
		}
		return s, nil
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", errUnsupportedAnswer
		}
		return n.String(), nil
	default:
		return "", errUnsupportedAnswer
	}
}
