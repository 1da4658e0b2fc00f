package snapshot

import (
	"bytes"
	"fmt"
	"strconv"
)

// Flag булево значение, которое сервер присылает то как true/false,
// то как 0/1, то как "0"/"1".
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	switch raw {
	case "", "null":
		*f = false
		return nil
	case "true":
		*f = true
		return nil
	case "false":
		*f = false
		return nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid flag value %s", data)
	}
	*f = n != 0
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// Int значение для SQLite-колонки INTEGER 0/1
func (f Flag) Int() int {
	if f {
		return 1
	}
	return 0
}
