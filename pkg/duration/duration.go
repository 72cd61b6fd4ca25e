// Package duration provides a time.Duration decodable from configuration strings like "90s" or "10m".
package duration

import "time"

// Duration is a time.Duration (un)marshaled as text
type Duration struct {
	time.Duration
}

// Of returns the given time.Duration as a Duration
func Of(d time.Duration) Duration {
	return Duration{d}
}

// UnmarshalText parses the text with time.ParseDuration
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration like time.Duration.String
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
