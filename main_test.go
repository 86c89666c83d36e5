package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap/zaptest"
)

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	flags := cmd.Flags()

	port, err := flags.GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, 30001, port)

	display, err := flags.GetString("display")
	require.NoError(t, err)
	assert.Equal(t, "file", display)

	require.NoError(t, flags.Parse([]string{"--port", "8080", "--homekit=false", "--display", "terminal"}))
	homekit, err := flags.GetBool("homekit")
	require.NoError(t, err)
	assert.False(t, homekit)
	port, _ = flags.GetInt("port")
	assert.Equal(t, 8080, port)
}

func TestNewDisplaySink(t *testing.T) {
	logger := zaptest.NewLogger(t)

	opts := defaultOptions()
	opts.outputDir = filepath.Join(t.TempDir(), "out")
	sink, err := newDisplaySink(opts, logger)
	require.NoError(t, err)
	assert.IsType(t, &fileSink{}, sink)
	assert.DirExists(t, opts.outputDir)

	opts.display = "terminal"
	sink, err = newDisplaySink(opts, logger)
	require.NoError(t, err)
	assert.IsType(t, &terminalSink{}, sink)

	opts.display = "none"
	sink, err = newDisplaySink(opts, logger)
	require.NoError(t, err)
	assert.Nil(t, sink)

	opts.display = "projector"
	_, err = newDisplaySink(opts, logger)
	assert.Error(t, err)
}

func TestNewSettingsSource(t *testing.T) {
	opts := defaultOptions()
	assert.IsType(t, staticSettings{}, newSettingsSource(opts))

	opts.settingsPath = "settings.yaml"
	assert.IsType(t, &fileSettings{}, newSettingsSource(opts))
}

func TestAppOptionsValidate(t *testing.T) {
	for _, homekit := range []bool{true, false} {
		opts := defaultOptions()
		opts.homekit = homekit
		assert.NoError(t, fx.ValidateApp(appOptions(opts)))
	}
}

func TestPlainServerStopsOnCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- plainServer(srv)(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
