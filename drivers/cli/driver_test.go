package cli

import (
	"context"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-vigor/drivers/mock"
	"github.com/nanoncore/nano-vigor/types"
)

func startRouter(t *testing.T, configure func(r *mock.Router)) *mock.Router {
	t.Helper()

	router := mock.NewRouter()
	if configure != nil {
		configure(router)
	}
	require.NoError(t, router.Start())
	t.Cleanup(func() { _ = router.Close() })
	return router
}

func newRouterDriver(t *testing.T, router *mock.Router) *Driver {
	t.Helper()

	host, port := router.Addr()
	d, err := NewDriver(types.RouterConfig{
		RouterCredentials: types.RouterCredentials{Host: host, Username: "admin", Password: "admin"},
		Port:              port,
		StepTimeout:       2 * time.Second,
	}, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return d
}

func TestNewDriver(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		_, err := NewDriver(types.RouterConfig{RouterCredentials: types.RouterCredentials{Host: "10.0.0.1"}})
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
	})

	t.Run("applies defaults", func(t *testing.T) {
		d, err := NewDriver(types.RouterConfig{RouterCredentials: testCreds})
		require.NoError(t, err)
		assert.Equal(t, 23, d.Config().Port)
		assert.Equal(t, types.TransportTelnet, d.Config().Transport)
		assert.Equal(t, "192.168.1.1:23", d.address())
	})
}

func TestDriverCollect(t *testing.T) {
	router := startRouter(t, nil)
	d := newRouterDriver(t, router)

	out, err := d.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultTranscript(), out)

	assert.Equal(t, []string{"login admin", "vdsl status", "vdsl status counts"}, router.GetCommandHistory())
	assert.Eventually(t, func() bool { return router.Terminated() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestDriverCollectTerminatesEverySession(t *testing.T) {
	router := startRouter(t, nil)
	d := newRouterDriver(t, router)

	for i := 0; i < 5; i++ {
		_, err := d.Collect(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 5, router.Sessions())
	assert.Eventually(t, func() bool { return router.Terminated() == 5 }, 2*time.Second, 10*time.Millisecond)
}

func TestDriverLoginFollowsCapabilities(t *testing.T) {
	for _, transport := range []types.Transport{types.TransportTelnet, types.TransportSSH} {
		t.Run(string(transport), func(t *testing.T) {
			d, err := NewDriver(types.RouterConfig{RouterCredentials: testCreds, Transport: transport})
			require.NoError(t, err)

			caps, ok := transport.Capabilities()
			require.True(t, ok)
			assert.Equal(t, caps.CLILogin, d.login())
			assert.Equal(t, caps.DefaultPort, d.Config().Port)
		})
	}
}

func TestSpawnKeepsBytesAfterMarker(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	exp, err := spawn(NewTelnetConn(client), time.Second)
	require.NoError(t, err)
	defer exp.Close()

	go func() {
		_, _ = server.Write([]byte("\r\nAccount:\r\nPassword:"))
	}()

	_, _, err = exp.Expect(regexp.MustCompile(AccountPrompt), time.Second)
	require.NoError(t, err)
	_, _, err = exp.Expect(regexp.MustCompile(PasswordPrompt), time.Second)
	require.NoError(t, err)
}

func TestDriverCollectWithNegotiation(t *testing.T) {
	router := startRouter(t, func(r *mock.Router) { r.Negotiate = true })
	d := newRouterDriver(t, router)

	out, err := d.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultTranscript(), out)
}

func TestDriverCollectOpensOneSessionPerCall(t *testing.T) {
	router := startRouter(t, nil)
	d := newRouterDriver(t, router)

	for i := 0; i < 2; i++ {
		_, err := d.Collect(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, router.Sessions())
}

func TestDriverCollectConnectionRefused(t *testing.T) {
	router := startRouter(t, nil)
	host, port := router.Addr()
	require.NoError(t, router.Close())

	d, err := NewDriver(types.RouterConfig{
		RouterCredentials: types.RouterCredentials{Host: host, Username: "admin", Password: "admin"},
		Port:              port,
	}, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = d.Collect(context.Background())
	require.Error(t, err)

	var pe *types.PollError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, types.ErrConnRefused, pe.Code)
	assert.Equal(t, "Connecting", pe.Stage)
	assert.True(t, types.IsRecoverable(err))
}

func TestDriverCollectFaults(t *testing.T) {
	tests := []struct {
		name      string
		fault     mock.FaultPoint
		password  string
		wantCode  types.ErrorCode
		wantStage string
	}{
		{"closed on connect", mock.FaultOnConnect, "admin", types.ErrUnexpectedDisconnect, "AwaitingAccountPrompt"},
		{"closed after account", mock.FaultAfterAccount, "admin", types.ErrUnexpectedDisconnect, "AwaitingPasswordPrompt"},
		{"closed after login", mock.FaultAfterLogin, "admin", types.ErrUnexpectedDisconnect, "AwaitingShellPrompt"},
		{"wrong password", mock.FaultNone, "wrong", types.ErrUnexpectedDisconnect, "AwaitingShellPrompt"},
		{"closed during status", mock.FaultDuringStatus, "admin", types.ErrUnexpectedDisconnect, "CapturingBlock1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := startRouter(t, func(r *mock.Router) { r.Fault = tt.fault })
			host, port := router.Addr()

			d, err := NewDriver(types.RouterConfig{
				RouterCredentials: types.RouterCredentials{Host: host, Username: "admin", Password: tt.password},
				Port:              port,
				StepTimeout:       2 * time.Second,
			}, WithLogger(zerolog.Nop()))
			require.NoError(t, err)

			out, err := d.Collect(context.Background())
			require.Error(t, err)
			assert.Empty(t, out)

			var pe *types.PollError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantCode, pe.Code)
			assert.Equal(t, tt.wantStage, pe.Stage)
		})
	}
}

func TestDriverCollectStepTimeout(t *testing.T) {
	router := startRouter(t, func(r *mock.Router) { r.Fault = mock.FaultStallAfterLogin })
	host, port := router.Addr()

	d, err := NewDriver(types.RouterConfig{
		RouterCredentials: types.RouterCredentials{Host: host, Username: "admin", Password: "admin"},
		Port:              port,
		StepTimeout:       300 * time.Millisecond,
	}, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	start := time.Now()
	_, err = d.Collect(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.ErrTimeout, types.GetErrorCode(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDriverCollectCancelled(t *testing.T) {
	router := startRouter(t, func(r *mock.Router) { r.Fault = mock.FaultStallAfterLogin })
	host, port := router.Addr()

	d, err := NewDriver(types.RouterConfig{
		RouterCredentials: types.RouterCredentials{Host: host, Username: "admin", Password: "admin"},
		Port:              port,
		StepTimeout:       10 * time.Second,
	}, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	_, err = d.Collect(ctx)
	require.Error(t, err)
	assert.Equal(t, types.ErrTransport, types.GetErrorCode(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 3*time.Second)
}
