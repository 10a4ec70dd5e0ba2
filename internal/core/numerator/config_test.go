package numerator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigFormat(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		seq  int64
		want string
	}{
		{"default", DefaultConfig("INV"), 42, "INV-00042"},
		{"zero pad falls back to default", Config{Prefix: "INV"}, 7, "INV-00007"},
		{"wide", Config{Prefix: "BILL", PadWidth: 8}, 123, "BILL-00000123"},
		{"overflow keeps digits", Config{Prefix: "INV", PadWidth: 2}, 12345, "INV-12345"},
		{"no prefix", Config{PadWidth: 3}, 9, "009"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Format(tt.seq))
		})
	}
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("INV-00042"))
	assert.Equal(t, int64(9), ParseNumber("009"))
	assert.Equal(t, int64(-1), ParseNumber("INV-abc"))
	assert.Equal(t, int64(-1), ParseNumber(""))
}

func TestMockSequencerDefaults(t *testing.T) {
	m := &MockSequencer{}
	assert.Equal(t, int64(0), m.GetCurrent(context.Background()))

	n, err := m.GetNext(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), m.GetCurrent(context.Background()))
}
