package snmp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nanoncore/nano-vigor/types"
	"github.com/nanoncore/nano-vigor/vendors/common"
)

// MIB-II system group
const (
	OIDSysDescr  = "1.3.6.1.2.1.1.1.0"
	OIDSysUpTime = "1.3.6.1.2.1.1.3.0"
	OIDSysName   = "1.3.6.1.2.1.1.5.0"
)

// DefaultPort is the SNMP agent port
const DefaultPort = 161

// Metadata keys read from RouterConfig.Metadata
const (
	MetaCommunity = "snmp_community"
	MetaVersion   = "snmp_version"
	MetaPort      = "snmp_port"
)

// Driver reads device identity over SNMP
// Note: line statistics are only available from the CLI; SNMP supplies
// the system description, name and uptime
type Driver struct {
	config types.RouterConfig
	log    zerolog.Logger
	now    func() time.Time
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the driver logger
func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// NewDriver creates a new SNMP driver
func NewDriver(config types.RouterConfig, opts ...Option) (*Driver, error) {
	if config.Host == "" {
		return nil, types.NewPollError(types.ErrInvalidConfig, "", fmt.Errorf("host is required"))
	}
	if config.Timeout == 0 {
		config.Timeout = types.DefaultDialTimeout
	}

	d := &Driver{config: config, log: log.Logger, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// newClient builds the gosnmp client from config and metadata
func (d *Driver) newClient(ctx context.Context) (*gosnmp.GoSNMP, error) {
	version, err := parseVersion(common.MetadataStringWithDefault(d.config.Metadata, "2c", MetaVersion))
	if err != nil {
		return nil, err
	}

	port, err := common.MetadataPort(d.config.Metadata, DefaultPort, MetaPort)
	if err != nil {
		return nil, types.NewPollError(types.ErrInvalidConfig, "", fmt.Errorf("%s: %w", MetaPort, err))
	}

	community := common.MetadataStringWithDefault(d.config.Metadata, "public", MetaCommunity)

	client := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    d.config.Host,
		Port:      uint16(port), //nolint:gosec // validated above
		Community: community,
		Version:   version,
		Timeout:   d.config.Timeout,
		Retries:   1,
	}

	// For SNMPv3, the CLI credentials double as USM credentials
	if version == gosnmp.Version3 {
		client.SecurityModel = gosnmp.UserSecurityModel
		client.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 d.config.Username,
			AuthenticationProtocol:   gosnmp.SHA,
			AuthenticationPassphrase: d.config.Password,
			PrivacyProtocol:          gosnmp.AES,
			PrivacyPassphrase:        d.config.Password,
		}
		client.MsgFlags = gosnmp.AuthPriv
	}

	return client, nil
}

func parseVersion(v string) (gosnmp.SnmpVersion, error) {
	switch v {
	case "", "2c":
		return gosnmp.Version2c, nil
	case "1":
		return gosnmp.Version1, nil
	case "3":
		return gosnmp.Version3, nil
	default:
		return 0, types.NewPollError(types.ErrInvalidConfig, "", fmt.Errorf("unsupported %s %q", MetaVersion, v))
	}
}

// DeviceInfo queries the system group in a single GET
func (d *Driver) DeviceInfo(ctx context.Context) (*types.DeviceInfo, error) {
	client, err := d.newClient(ctx)
	if err != nil {
		return nil, err
	}

	if err := client.Connect(); err != nil {
		return nil, requestError(fmt.Errorf("failed to connect SNMP: %w", err))
	}
	defer client.Conn.Close()

	packet, err := client.Get([]string{OIDSysDescr, OIDSysName, OIDSysUpTime})
	if err != nil {
		return nil, requestError(fmt.Errorf("SNMP GET failed: %w", err))
	}
	if packet.Error != gosnmp.NoError {
		return nil, types.NewPollError(types.ErrTransport, "", fmt.Errorf("SNMP agent returned %s", packet.Error))
	}

	results := make(map[string]interface{}, len(packet.Variables))
	for _, v := range packet.Variables {
		results[v.Name] = common.PDUValue(v)
	}

	info, err := deviceInfoFromResults(results, d.now())
	if err != nil {
		return nil, types.NewPollError(types.ErrParse, "", err)
	}

	d.log.Debug().Str("sys_name", info.SysName).Dur("uptime", info.Uptime).Msg("SNMP device info")
	return info, nil
}

// requestError classifies a failed SNMP exchange. gosnmp reports exhausted
// retries as a plain "request timeout" error.
func requestError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) ||
		strings.Contains(err.Error(), "request timeout"):
		return types.NewPollError(types.ErrTimeout, "", err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return types.NewPollError(types.ErrConnRefused, "", err)
	default:
		return types.NewPollError(types.ErrTransport, "", err)
	}
}

// deviceInfoFromResults maps system group values onto DeviceInfo
func deviceInfoFromResults(results map[string]interface{}, now time.Time) (*types.DeviceInfo, error) {
	raw, ok := common.GetSNMPResult(results, OIDSysDescr)
	if !ok {
		return nil, fmt.Errorf("sysDescr not returned")
	}
	descr, ok := common.ParseStringSNMPValue(raw)
	if !ok {
		return nil, fmt.Errorf("sysDescr has unexpected type %T", raw)
	}

	info := &types.DeviceInfo{Description: descr, FetchedAt: now}

	if raw, ok := common.GetSNMPResult(results, OIDSysName); ok {
		info.SysName, _ = common.ParseStringSNMPValue(raw)
	}

	// sysUpTime is in hundredths of a second
	if raw, ok := common.GetSNMPResult(results, OIDSysUpTime); ok {
		if ticks, ok := common.ParseUint64SNMPValue(raw); ok {
			info.Uptime = time.Duration(ticks) * 10 * time.Millisecond
		}
	}

	return info, nil
}

// Ensure Driver implements DeviceInfoProvider
var _ types.DeviceInfoProvider = (*Driver)(nil)
