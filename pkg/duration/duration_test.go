package duration

import (
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func TestDuration_TOML(t *testing.T) {
	var c struct {
		Timeout Duration `toml:"timeout"`
		Unset   Duration `toml:"unset"`
	}
	if err := toml.Unmarshal([]byte(`timeout = "1m30s"`), &c); err != nil {
		t.Fatal(err)
	}
	if c.Timeout.Duration != 90*time.Second || c.Unset.Duration != 0 {
		t.Errorf("decoded %+v", c)
	}

	if err := toml.Unmarshal([]byte(`timeout = "soon"`), &c); err == nil {
		t.Error("expected an error for an invalid duration")
	}

	c.Timeout = Of(15 * time.Second)
	b, err := toml.Marshal(struct {
		Timeout Duration `toml:"timeout"`
	}{c.Timeout})
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Timeout Duration `toml:"timeout"`
	}
	if err = toml.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("failed to decode %q: %v", b, err)
	}
	if decoded.Timeout != c.Timeout {
		t.Errorf("round trip = %s, want %s", decoded.Timeout, c.Timeout)
	}
}
