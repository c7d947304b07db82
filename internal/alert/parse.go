package alert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jmehdipour/order-alert/internal/model"
)

const (
	fieldOrderTotal  = "order_total"
	fieldPhoneNumber = "phone_number"
)

var errNotUTF8 = errors.New("payload is not valid UTF-8")

// ParseOrderEvent decodes one message body. A missing order_total is 0 and a
// missing or null phone_number is empty; anything present but unusable is a
// *ParseError. Non-UTF-8 input is a *DecodeError.
func ParseOrderEvent(payload []byte) (model.OrderEvent, error) {
	if !utf8.Valid(payload) {
		return model.OrderEvent{}, &DecodeError{Err: errNotUTF8}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return model.OrderEvent{}, &ParseError{Err: err}
	}
	if fields == nil {
		return model.OrderEvent{}, &ParseError{Err: errors.New("event is not a JSON object")}
	}

	var ev model.OrderEvent

	if raw, ok := fields[fieldOrderTotal]; ok {
		total, err := parseTotal(raw)
		if err != nil {
			return model.OrderEvent{}, &ParseError{Field: fieldOrderTotal, Err: err}
		}
		ev.OrderTotal = total
	}

	if raw, ok := fields[fieldPhoneNumber]; ok {
		phone, err := parsePhone(raw)
		if err != nil {
			return model.OrderEvent{}, &ParseError{Field: fieldPhoneNumber, Err: err}
		}
		ev.PhoneNumber = phone
	}

	return ev, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// parseTotal accepts JSON numbers, numeric strings (surrounding whitespace
// allowed) and booleans (1/0).
func parseTotal(raw json.RawMessage) (float64, error) {
	v, err := decodeValue(raw)
	if err != nil {
		return 0, err
	}

	switch t := v.(type) {
	case json.Number:
		return parseNumber(t.String())
	case string:
		return parseNumericString(t)
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, errors.New("value is null")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

var errIntegerTooLarge = errors.New("integer too large to convert to float")

// parseNumber converts a JSON number literal. An out-of-range fraction or
// exponent form is ±Inf; an out-of-range integer literal is an error.
func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			if !strings.ContainsAny(s, ".eE") {
				return 0, errIntegerTooLarge
			}
			return f, nil
		}
		return 0, err
	}
	return f, nil
}

// parseNumericString converts decimal text. Single underscores between digits
// are allowed ("1_000"); hexadecimal is not. Out of range is ±Inf.
func parseNumericString(s string) (float64, error) {
	s = strings.TrimSpace(s)

	unsigned := strings.TrimLeft(s, "+-")
	if len(unsigned) > 1 && unsigned[0] == '0' && (unsigned[1] == 'x' || unsigned[1] == 'X') {
		return 0, fmt.Errorf("invalid numeric string %q", s)
	}

	if strings.Contains(s, "_") {
		stripped, ok := stripDigitSeparators(s)
		if !ok {
			return 0, fmt.Errorf("invalid numeric string %q", s)
		}
		s = stripped
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return f, nil
		}
		return 0, err
	}
	return f, nil
}

func stripDigitSeparators(s string) (string, bool) {
	isDigit := func(i int) bool { return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9' }

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			if !isDigit(i-1) || !isDigit(i+1) {
				return "", false
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String(), true
}

func parsePhone(raw json.RawMessage) (string, error) {
	v, err := decodeValue(raw)
	if err != nil {
		return "", err
	}

	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}
