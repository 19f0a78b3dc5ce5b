package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenEnvEmpty(t *testing.T) {
	c, err := load(nil)
	require.NoError(t, err)
	require.Equal(t, &Config{}, c)
}

func TestLoadBooleanFlags(t *testing.T) {
	c, err := load([]string{"ANVIL_PRINT_IR=1", "ATS_DISABLE_AOT=anything"})
	require.NoError(t, err)
	require.True(t, c.PrintIR)
	require.True(t, c.DisableAOT)
}

func TestLoadAdvertiseAVX(t *testing.T) {
	c, err := load([]string{"ANVIL_ADVERTISE_AVX=1"})
	require.NoError(t, err)
	require.True(t, c.AdvertiseAVX)

	c, err = load([]string{"ANVIL_ADVERTISE_AVX=0"})
	require.NoError(t, err)
	require.False(t, c.AdvertiseAVX)
}

func TestLoadAdvertiseAVXRejectsOutOfRange(t *testing.T) {
	_, err := load([]string{"ANVIL_ADVERTISE_AVX=2"})
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "ANVIL_ADVERTISE_AVX", cfgErr.Var)
}

func TestLoadDebugServerPort(t *testing.T) {
	c, err := load([]string{"ANVIL_DEBUGSERVER_PORT=4000"})
	require.NoError(t, err)
	require.Equal(t, 4000, c.DebugServerPort)
}

func TestLoadDebugServerPortRejectsZeroAndTooLarge(t *testing.T) {
	_, err := load([]string{"ANVIL_DEBUGSERVER_PORT=0"})
	require.Error(t, err)

	_, err = load([]string{"ANVIL_DEBUGSERVER_PORT=1000000"})
	require.Error(t, err)
}

func TestLoadHardwareTracingPath(t *testing.T) {
	c, err := load([]string{"ANVIL_HARDWARE_TRACING_PATH=/tmp/trace"})
	require.NoError(t, err)
	require.Equal(t, "/tmp/trace", c.HardwareTracingPath)
}

func TestLoadUnknownVariableIsFatal(t *testing.T) {
	_, err := load([]string{"ANVIL_BOGUS=1"})
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "ANVIL_BOGUS", cfgErr.Var)
}

func TestLoadIgnoresUnrelatedEnvironmentVariables(t *testing.T) {
	c, err := load([]string{"PATH=/usr/bin", "HOME=/root"})
	require.NoError(t, err)
	require.Equal(t, &Config{}, c)
}

func TestLoadAliasPrefixRecognized(t *testing.T) {
	c, err := load([]string{"ATS_PRINT_SEGMENTS=1"})
	require.NoError(t, err)
	require.True(t, c.PrintSegments)
}
