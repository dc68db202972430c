package snmp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-vigor/types"
)

func testConfig(meta map[string]string) types.RouterConfig {
	return types.RouterConfig{
		RouterCredentials: types.RouterCredentials{Host: "192.168.1.1", Username: "admin", Password: "admin"},
		Metadata:          meta,
	}
}

func TestNewDriverRequiresHost(t *testing.T) {
	_, err := NewDriver(types.RouterConfig{})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name          string
		meta          map[string]string
		wantVersion   gosnmp.SnmpVersion
		wantPort      uint16
		wantCommunity string
		wantErr       bool
	}{
		{"defaults", nil, gosnmp.Version2c, 161, "public", false},
		{"v1 private", map[string]string{MetaVersion: "1", MetaCommunity: "private"}, gosnmp.Version1, 161, "private", false},
		{"custom port", map[string]string{MetaPort: "1161"}, gosnmp.Version2c, 1161, "public", false},
		{"v3", map[string]string{MetaVersion: "3"}, gosnmp.Version3, 161, "public", false},
		{"bad version", map[string]string{MetaVersion: "4"}, 0, 0, "", true},
		{"bad port", map[string]string{MetaPort: "70000"}, 0, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDriver(testConfig(tt.meta), WithLogger(zerolog.Nop()))
			require.NoError(t, err)

			client, err := d.newClient(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "192.168.1.1", client.Target)
			assert.Equal(t, tt.wantVersion, client.Version)
			assert.Equal(t, tt.wantPort, client.Port)
			assert.Equal(t, tt.wantCommunity, client.Community)
			assert.Equal(t, types.DefaultDialTimeout, client.Timeout)
			if tt.wantVersion == gosnmp.Version3 {
				params, ok := client.SecurityParameters.(*gosnmp.UsmSecurityParameters)
				require.True(t, ok)
				assert.Equal(t, "admin", params.UserName)
			}
		})
	}
}

func TestDeviceInfoFromResults(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	info, err := deviceInfoFromResults(map[string]interface{}{
		"." + OIDSysDescr:  "DrayTek Vigor130 Series",
		"." + OIDSysName:   "vigor",
		"." + OIDSysUpTime: uint64(12345600),
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "DrayTek Vigor130 Series", info.Description)
	assert.Equal(t, "vigor", info.SysName)
	assert.Equal(t, 123456*time.Second, info.Uptime)
	assert.Equal(t, now, info.FetchedAt)
}

func TestDeviceInfoFromResultsMissingDescr(t *testing.T) {
	_, err := deviceInfoFromResults(map[string]interface{}{"." + OIDSysName: "vigor"}, time.Now())
	require.Error(t, err)

	_, err = deviceInfoFromResults(map[string]interface{}{"." + OIDSysDescr: 42}, time.Now())
	require.Error(t, err)
}

func TestDeviceInfoFromResultsOptionalFields(t *testing.T) {
	info, err := deviceInfoFromResults(map[string]interface{}{OIDSysDescr: []byte("Vigor")}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Vigor", info.Description)
	assert.Empty(t, info.SysName)
	assert.Zero(t, info.Uptime)
}

func TestRequestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.ErrorCode
	}{
		{"retries exhausted", fmt.Errorf("SNMP GET failed: %w", errors.New("request timeout (after 1 retries)")), types.ErrTimeout},
		{"context deadline", context.DeadlineExceeded, types.ErrTimeout},
		{"socket deadline", &net.OpError{Op: "read", Net: "udp", Err: os.ErrDeadlineExceeded}, types.ErrTimeout},
		{"port unreachable", &net.OpError{Op: "read", Net: "udp", Err: os.NewSyscallError("recvfrom", syscall.ECONNREFUSED)}, types.ErrConnRefused},
		{"decode failure", errors.New("unable to decode packet: truncated"), types.ErrTransport},
		{"authentication failure", errors.New("incoming packet is not authentic, discarding"), types.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := requestError(tt.err)
			assert.Equal(t, tt.want, types.GetErrorCode(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
