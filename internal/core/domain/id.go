package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ItemID identifies an item within a channel.
// Telegram items use the decimal message number, web items a URL-derived slug.
type ItemID string

// NewNumericID returns the ItemID for a numeric message id.
func NewNumericID(n int64) ItemID {
	return ItemID(strconv.FormatInt(n, 10))
}

// String returns the raw identifier.
func (id ItemID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty.
func (id ItemID) IsZero() bool {
	return id == ""
}

// Numeric returns the integer value of a canonical decimal id.
// "007" and "-1" are not canonical and report false.
func (id ItemID) Numeric() (int64, bool) {
	s := string(id)
	if s == "" || s[0] == '-' || s[0] == '+' {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != s {
		return 0, false
	}
	return n, true
}

// Compare orders ids numerically when both are numeric and lexically otherwise.
// Numeric ids sort before non-numeric ones.
func (id ItemID) Compare(other ItemID) int {
	a, aNum := id.Numeric()
	b, bNum := other.Numeric()
	switch {
	case aNum && bNum:
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	case aNum:
		return -1
	case bNum:
		return 1
	default:
		return strings.Compare(string(id), string(other))
	}
}

// MarshalJSON writes numeric ids as JSON numbers and the rest as strings.
func (id ItemID) MarshalJSON() ([]byte, error) {
	if _, ok := id.Numeric(); ok {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts either an integer or a string.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: item id %s", ErrInvalidInput, data)
	}
	*id = NewNumericID(n)
	return nil
}
