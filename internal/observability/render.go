// Package observability - render.go serializes the metrics store and alert
// state into the Prometheus text exposition format.
//
// DESIGN: Rendering operates on a point-in-time copy taken under the Manager
// lock and formats it outside the lock, so a slow scrape never stalls
// ingestion. Families and series are sorted for byte-identical output across
// calls with no intervening writes.
package observability

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// familyMeta carries the HELP text for one metric family.
var familyHelp = map[string]string{
	metricRequestsTotal:   "Total HTTP requests by method, path and status class.",
	metricRequestErrors:   "Total HTTP requests that returned a 5xx status.",
	metricDBCalls:         "Total database calls issued while serving requests.",
	metricDBCacheHits:     "Total database calls served from cache.",
	metricDBErrors:        "Total database calls that failed.",
	metricRequestDuration: "HTTP request duration in milliseconds.",
	metricDBCallDuration:  "Per-request total database call duration in milliseconds.",
	metricAlertActive:     "Whether the alert is currently breached (1) or not (0).",
	metricAlertBreaches:   "Lifetime count of logged alert breach events.",
	metricUptime:          "Process uptime in seconds.",
}

// alertSnapshot is the rendered state of one alert kind.
type alertSnapshot struct {
	active      bool
	breachCount int64
}

// renderSnapshot is the point-in-time copy the renderer formats.
type renderSnapshot struct {
	counters   map[string]map[LabelKey]int64
	histograms map[string]map[LabelKey]*histogram
	alerts     map[AlertKind]alertSnapshot
	uptimeSec  float64
}

// renderPrometheus formats a snapshot into the text exposition format.
func renderPrometheus(snap renderSnapshot) string {
	var b strings.Builder

	for _, family := range sortedFamilies(snap.counters) {
		writeHeader(&b, family, "counter")
		series := snap.counters[family]
		for _, key := range sortedKeys(series) {
			fmt.Fprintf(&b, "%s%s %d\n", family, formatLabels(key), series[key])
		}
	}

	for _, family := range sortedFamilies(snap.histograms) {
		writeHeader(&b, family, "histogram")
		series := snap.histograms[family]
		for _, key := range sortedKeys(series) {
			writeHistogram(&b, family, key, series[key])
		}
	}

	kinds := make([]string, 0, len(snap.alerts))
	for kind := range snap.alerts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	writeHeader(&b, metricAlertBreaches, "counter")
	for _, kind := range kinds {
		fmt.Fprintf(&b, "%s{alert=\"%s\"} %d\n", metricAlertBreaches, escapeLabel(kind), snap.alerts[AlertKind(kind)].breachCount)
	}
	writeHeader(&b, metricAlertActive, "gauge")
	for _, kind := range kinds {
		active := 0
		if snap.alerts[AlertKind(kind)].active {
			active = 1
		}
		fmt.Fprintf(&b, "%s{alert=\"%s\"} %d\n", metricAlertActive, escapeLabel(kind), active)
	}

	writeHeader(&b, metricUptime, "gauge")
	fmt.Fprintf(&b, "%s %s\n", metricUptime, formatFloat(snap.uptimeSec))

	return b.String()
}

// writeHeader emits the HELP/TYPE preamble for one family.
func writeHeader(b *strings.Builder, family, kind string) {
	if help, ok := familyHelp[family]; ok {
		fmt.Fprintf(b, "# HELP %s %s\n", family, help)
	}
	fmt.Fprintf(b, "# TYPE %s %s\n", family, kind)
}

// writeHistogram emits cumulative bucket lines, the +Inf bucket, then _sum
// and _count, for one series. The +Inf bucket comes from the observation
// count, not the finite bucket sum, so values above every bound are counted
// exactly once.
func writeHistogram(b *strings.Builder, family string, key LabelKey, h *histogram) {
	labels := histogramLabels(key)
	cumulative := int64(0)
	for i, bound := range h.bounds {
		cumulative += h.buckets[i]
		fmt.Fprintf(b, "%s_bucket{%sle=\"%s\"} %d\n", family, labels, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(b, "%s_bucket{%sle=\"+Inf\"} %d\n", family, labels, h.count)
	fmt.Fprintf(b, "%s_sum%s %s\n", family, formatLabels(key), formatFloat(h.sum))
	fmt.Fprintf(b, "%s_count%s %d\n", family, formatLabels(key), h.count)
}

// formatLabels renders the {name="value",...} block for a key, omitting the
// status label on families not partitioned by it.
func formatLabels(key LabelKey) string {
	var b strings.Builder
	b.WriteString(`{method="`)
	b.WriteString(escapeLabel(key.Method))
	b.WriteString(`",path="`)
	b.WriteString(escapeLabel(key.Path))
	b.WriteString(`"`)
	if key.Status != "" {
		b.WriteString(`,status="`)
		b.WriteString(escapeLabel(key.Status))
		b.WriteString(`"`)
	}
	b.WriteString("}")
	return b.String()
}

// histogramLabels renders the label prefix shared by bucket lines, leaving
// room for the trailing le label.
func histogramLabels(key LabelKey) string {
	inner := formatLabels(key)
	return inner[1:len(inner)-1] + ","
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)

// escapeLabel escapes a label value per the Prometheus exposition rules.
func escapeLabel(v string) string {
	return labelEscaper.Replace(v)
}

// formatFloat renders a float with up to 6 decimal places, trailing zeros
// and a trailing point stripped ("1.000000" -> "1"). Non-finite values
// render as 0.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// sortedFamilies returns the family names of m in sorted order.
func sortedFamilies[V any](m map[string]V) []string {
	families := make([]string, 0, len(m))
	for f := range m {
		families = append(families, f)
	}
	sort.Strings(families)
	return families
}

// sortedKeys returns the label keys of series in deterministic order.
func sortedKeys[V any](series map[LabelKey]V) []LabelKey {
	keys := make([]LabelKey, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}
