package config

import "encoding/json"

// Secret is a string that redacts itself when printed or marshaled to
// JSON, so values like the redis password cannot leak through logs,
// error messages, or config dumps. Use Value to read the real content.
type Secret struct {
	value string
}

// NewSecret wraps a sensitive value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Value returns the underlying sensitive value.
func (s Secret) Value() string {
	return s.value
}

func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	s.value = value
	return nil
}

// IsEmpty reports whether no value has been set.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}
