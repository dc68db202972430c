package mock

import (
	"strings"

	"github.com/nanoncore/nano-vigor/types"
	"github.com/nanoncore/nano-vigor/vendors/common"
)

const (
	AccountPrompt      = "Account:"
	PasswordPrompt     = "Password: "
	ShellPrompt        = "Vigor> "
	StatusCommand      = "vdsl status"
	CountsCommand      = "vdsl status counts"
	CountersTerminator = "\r\n [ Counters: 15Min ]"
	crlf               = "\r\n"
)

// statusLines is a Vigor 130 "vdsl status" body, without the command echo
var statusLines = []string{
	"  ---------------------- ATU-R Info (hw: annex A, f/w: annex A/B/C) -----------",
	"   Running Mode            :      17A       State                : SHOWTIME",
	"   DS Actual Rate          : 34998000 bps   US Actual Rate       :  6799000 bps",
	"   DS Attainable Rate      : 48272000 bps   US Attainable Rate   :  7032000 bps",
	"   DS Path Mode            :        Fast    US Path Mode         :        Fast",
	"   DS Interleave Depth     :           1    US Interleave Depth  :           1",
	"   NE Current Attenuation  :          13 dB    Cur SNR Margin       :           9  dB",
	"   DS actual PSD           :     9. 1 dB   US actual PSD        :    -7. 1  dB",
	"   NE OLR Mode             :  SRA+BITSWAP   FE OLR Mode          :     BITSWAP",
	"   NE Trellis              :          ON    FE Trellis           :          ON",
	"   NE Bitswap              :          ON    FE Bitswap           :          ON",
	"  --------------------------- ATU-C Info ---------------------------------------",
	"   Far Current Attenuation :           0 dB   Far SNR Margin       :           7  dB",
	"   CO ITU Version[0]       : b5004244   CO ITU Version[1]    : 434d0000",
	"   DSLAM CHIPSET VENDOR    : < BDCM >",
}

// countsLines is a "vdsl status counts" body up to the 15 minute section
var countsLines = []string{
	"  ------------------------ ATU-R Counters ------------------------------------",
	"  [ Counters: Showtime ]",
	"                                   NE       FE",
	"  Showtime Status      :  SHOWTIME",
	"  Loss of Frame        :             0       FE :            0",
	"  Showtime Duration    :        123456 sec",
	"  CRC                  :            12       FE :            3",
	"  FEC                  :          3456       FE :           78",
	"  HEC                  :             0       FE :            0",
	"  Elapsed Time         :           900 sec",
}

// fifteenMinLines follow the terminator and are never captured
var fifteenMinLines = []string{
	"                                   NE       FE",
	"  CRC                  :             0       FE :            0",
}

// StatusOutput returns the "vdsl status" body
func StatusOutput() string {
	return strings.Join(statusLines, crlf)
}

// CountsOutput returns the "vdsl status counts" body before the terminator
func CountsOutput() string {
	return strings.Join(countsLines, crlf)
}

// ExpectedSnapshot is the snapshot the default outputs parse into
func ExpectedSnapshot() types.MetricSnapshot {
	return types.MetricSnapshot{
		types.MetricDSActual:          "34998000",
		types.MetricUSActual:          "6799000",
		types.MetricDSAttainable:      "48272000",
		types.MetricUSAttainable:      "7032000",
		types.MetricDSPathMode:        "Fast",
		types.MetricUSPathMode:        "Fast",
		types.MetricDSInterleaveDepth: "1",
		types.MetricUSInterleaveDepth: "1",
		types.MetricAttenuation:       "13",
		types.MetricSNRMargin:         "9",
		types.MetricUptime:            "123456",
		types.MetricCRC:               "12",
		types.MetricFEC:               "3456",
		types.MetricHEC:               "0",
	}
}

// Block1 is the text a session captures after sending "vdsl status"
func Block1(status string) string {
	return StatusCommand + crlf + status + crlf + ShellPrompt
}

// Block2 is the text a session captures after sending "vdsl status counts"
func Block2(counts string) string {
	return CountsCommand + crlf + counts + CountersTerminator
}

// Transcript returns the raw session output for the given bodies,
// escaped the same way the session client renders it
func Transcript(status, counts string) types.RawSessionOutput {
	return types.RawSessionOutput(
		common.EscapeControl([]byte(Block1(status))) + common.EscapeControl([]byte(Block2(counts))),
	)
}

// DefaultTranscript returns the raw output for the default bodies
func DefaultTranscript() types.RawSessionOutput {
	return Transcript(StatusOutput(), CountsOutput())
}
