package portfolio

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Side is the direction of a fill.
type Side int

// Side values. The zero value is deliberately not a valid side.
const (
	Buy Side = iota + 1
	Sell
)

// ParseSide maps a side code to a Side. Both the plain codes (BUY, SELL) and
// the broker execution codes (BOT, SLD) are accepted, case-insensitively.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "BOT":
		return Buy, nil
	case "SELL", "SLD":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSide, s)
	}
}

// Valid reports whether s is Buy or Sell.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// MarshalJSON encodes the side as its code.
func (s Side) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSide, int(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts any code ParseSide accepts.
func (s *Side) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("failed to decode side: %w", err)
	}
	parsed, err := ParseSide(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
