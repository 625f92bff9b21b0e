package internaldefs

import (
	ftp2http "github.com/apnarm/ftp2http"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   ftp2http.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   ftp2http.MetricID
	Name string
	Help string
}

// BucketCount is the number of histogram buckets, +Inf included.
const BucketCount = 8

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: ftp2http.MetricLoginSuccess, Name: "ftp2http_login_success_total", Help: "Accepted FTP logins."},
	{ID: ftp2http.MetricLoginFailure, Name: "ftp2http_login_failure_total", Help: "Rejected FTP logins."},
	{ID: ftp2http.MetricLoginRateLimited, Name: "ftp2http_login_rate_limited_total", Help: "FTP logins refused by the failed-login throttle."},
	{ID: ftp2http.MetricLoginRemote, Name: "ftp2http_login_remote_total", Help: "FTP logins accepted by a remote validator."},
	{ID: ftp2http.MetricRemoteAccountCreated, Name: "ftp2http_remote_account_created_total", Help: "Remote-only accounts created on first login."},
	{ID: ftp2http.MetricUploadOpened, Name: "ftp2http_upload_opened_total", Help: "Files opened for writing."},
	{ID: ftp2http.MetricUploadRefused, Name: "ftp2http_upload_refused_total", Help: "Opens refused by the virtual filesystem."},
	{ID: ftp2http.MetricUploadRelayed, Name: "ftp2http_upload_relayed_total", Help: "Uploads accepted by the backend."},
	{ID: ftp2http.MetricUploadFailed, Name: "ftp2http_upload_failed_total", Help: "Uploads rejected by or not delivered to the backend."},
	{ID: ftp2http.MetricUploadDiscarded, Name: "ftp2http_upload_discarded_total", Help: "Aborted uploads discarded without a relay."},
	{ID: ftp2http.MetricUploadBytes, Name: "ftp2http_upload_bytes_total", Help: "File bytes relayed successfully."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: ftp2http.MetricRelayLatency, Name: "ftp2http_relay_latency_seconds", Help: "Relay round-trip latency histogram."},
}

// HistogramBounds are the Prometheus "le" labels.
var HistogramBounds = []string{
	"0.01",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"5",
	"+Inf",
}

// HistogramBoundSuffix are the same bounds usable inside instrument names.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
