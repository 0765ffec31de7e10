package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiverSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recvr.settings")
	s := &ReceiverSettings{SaveDir: "/tmp/x", Port: "1111", Overwrite: true, WindowWidth: 800, WindowHeight: 600}
	require.NoError(t, SaveReceiverSettings(path, s))

	got, err := LoadReceiverSettings(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestLoadReceiverSettingsMissingFileYieldsDefaults(t *testing.T) {
	got, err := LoadReceiverSettings(filepath.Join(t.TempDir(), "missing.settings"))
	require.NoError(t, err)
	assert.Equal(t, DefaultReceiverSettings(), got)
}

func TestSenderSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sender.settings")
	s := &SenderSettings{Host: "192.168.1.5", Port: "1111", LastPath: "/home/a/file.txt", WindowWidth: 640, WindowHeight: 480}
	require.NoError(t, SaveSenderSettings(path, s))

	got, err := LoadSenderSettings(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestValidateHost(t *testing.T) {
	assert.NoError(t, ValidateHost("192.168.1.1"))
	assert.NoError(t, ValidateHost("my-host.local"))
	assert.Error(t, ValidateHost(""))
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("1111"))
	assert.Error(t, ValidatePort("0"))
	assert.Error(t, ValidatePort("70000"))
	assert.Error(t, ValidatePort("notanumber"))
}
