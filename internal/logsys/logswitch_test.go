package logsys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitch_MarkMtrOnlyWhenDisabled(t *testing.T) {
	sw := NewSwitch(4, time.Second)
	assert.Equal(t, StateEnabled, sw.State())

	marked := sw.MarkMtr(0)
	assert.False(t, marked, "enabled switch must not force no-log mode")
}

func TestSwitch_DisableThenMarkThenEnable(t *testing.T) {
	sw := NewSwitch(4, time.Second)

	require.NoError(t, sw.Disable(nil))
	assert.Equal(t, StateDisabled, sw.State())

	marked := sw.MarkMtr(1)
	assert.True(t, marked)

	// Enable must wait until the marked mtr unmarks itself.
	enabled := make(chan error, 1)
	go func() { enabled <- sw.Enable(nil) }()

	select {
	case <-enabled:
		t.Fatal("Enable should block while a no-log mtr is still registered")
	case <-time.After(10 * time.Millisecond):
	}

	sw.UnmarkMtr(1)

	select {
	case err := <-enabled:
		require.NoError(t, err)
		assert.Equal(t, StateEnabled, sw.State())
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Enable should have completed after UnmarkMtr")
	}
}

func TestSwitch_DisableFromWrongStateRefused(t *testing.T) {
	sw := NewSwitch(4, time.Second)
	require.NoError(t, sw.Disable(nil))

	err := sw.Disable(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transition refused")
}

func TestSwitch_DrainTimesOut(t *testing.T) {
	sw := NewSwitch(1, 5*time.Millisecond)
	require.NoError(t, sw.Disable(nil))
	sw.MarkMtr(0) // never unmarked

	err := sw.Enable(nil)
	require.Error(t, err)
}
