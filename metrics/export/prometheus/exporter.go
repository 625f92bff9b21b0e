package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	ftp2http "github.com/apnarm/ftp2http"
	"github.com/apnarm/ftp2http/metrics/export/internaldefs"
)

// Source supplies the values rendered by an Exporter. *ftp2http.Gateway
// implements it.
type Source interface {
	MetricsSnapshot() ftp2http.MetricsSnapshot
	AuditDropped() uint64
	AuditDelivered() uint64
}

const (
	auditDroppedName   = "ftp2http_audit_dropped_total"
	auditDeliveredName = "ftp2http_audit_delivered_total"
)

// Exporter serves the gateway counters on a scrape endpoint.
type Exporter struct {
	source Source
}

// NewExporter reads from gw on every scrape.
func NewExporter(gw *ftp2http.Gateway) *Exporter {
	return &Exporter{source: gw}
}

// NewExporterFromSource reads from an arbitrary Source.
func NewExporterFromSource(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler returns the /metrics handler.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text. Disabled metrics render as "".
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	delivered := p.source.AuditDelivered()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 && delivered == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeCounter(&b, auditDroppedName, "Audit events dropped because the dispatcher buffer was full.", dropped)
	writeCounter(&b, auditDeliveredName, "Audit events delivered to the audit sink.", delivered)

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [internaldefs.BucketCount]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	b.WriteByte('\n')

	// Snapshots carry bucket counts only.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
