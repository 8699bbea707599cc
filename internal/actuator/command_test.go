package actuator

import (
	"errors"
	"testing"

	"github.com/shaunagostinho/carputer/internal/serialio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampThrottle(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0},
		{50, 50},
		{87, 87},
		{88, 90},
		{89, 90},
		{90, 90},
		{91, 90},
		{92, 90},
		{93, 93},
		{110, 110},
		{111, 110},
		{150, 110},
		{180, 110},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampThrottle(tt.in), "ClampThrottle(%d)", tt.in)
	}
}

func TestTranslateThrottle(t *testing.T) {
	for _, v := range []int{88, 89, 90, 91, 92} {
		assert.Equal(t, []string{"D90"}, Translate(Command{Throttle: 0}, Command{Throttle: v}), "throttle %d", v)
	}
	assert.Equal(t, []string{"D110"}, Translate(Command{Throttle: 90}, Command{Throttle: 150}))
	assert.Equal(t, []string{"D50"}, Translate(Command{Throttle: 90}, Command{Throttle: 50}))
}

func TestTranslateIndependent(t *testing.T) {
	assert.Equal(t, []string{"S15"}, Translate(Command{Steering: 10, Throttle: 90}, Command{Steering: 15, Throttle: 90}))
	assert.Equal(t, []string{"D95"}, Translate(Command{Steering: 10, Throttle: 90}, Command{Steering: 10, Throttle: 95}))
	assert.Equal(t, []string{"S-5", "D60"}, Translate(Command{}, Command{Steering: -5, Throttle: 60}))
	assert.Empty(t, Translate(Command{Steering: 10, Throttle: 90}, Command{Steering: 10, Throttle: 90}))
}

// Raw value changes inside the dead zone still re-send the snapped value.
func TestTranslateComparesRawThrottle(t *testing.T) {
	assert.Equal(t, []string{"D90"}, Translate(Command{Throttle: 89}, Command{Throttle: 91}))
}

func TestTransmitterBatchesFlush(t *testing.T) {
	port := serialio.NewMockPort()
	tx := NewTransmitter(port, false)

	sent, err := tx.Send(Command{}, Command{Steering: 30, Throttle: 150})
	require.NoError(t, err)
	assert.Equal(t, []string{"S30", "D110"}, sent)
	assert.Equal(t, []string{"S30\n", "D110\n"}, port.Written())
	assert.Equal(t, 1, port.FlushCount())
}

func TestTransmitterSuppressesRedundantWrites(t *testing.T) {
	port := serialio.NewMockPort()
	tx := NewTransmitter(port, true)

	c := Command{Steering: 12, Throttle: 90}
	for i := 0; i < 5; i++ {
		sent, err := tx.Send(c, c)
		require.NoError(t, err)
		assert.Empty(t, sent)
	}
	assert.Empty(t, port.Written())
	assert.Equal(t, 0, port.FlushCount())
}

func TestTransmitterWriteError(t *testing.T) {
	port := serialio.NewMockPort()
	port.WriteError = errors.New("i/o error")
	tx := NewTransmitter(port, false)

	sent, err := tx.Send(Command{}, Command{Steering: 1, Throttle: 2})
	require.Error(t, err)
	assert.Equal(t, []string{"D2"}, sent)
	assert.Equal(t, []string{"D2\n"}, port.Written())
	assert.Equal(t, 1, port.FlushCount())
}
