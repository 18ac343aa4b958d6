// Package metrics counts bulb command traffic with prometheus collectors.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements lede.Recorder.
type Metrics struct {
	FramesWritten   *prometheus.CounterVec // labels: opcode
	BytesWritten    prometheus.Counter
	WriteFailures   *prometheus.CounterVec // labels: opcode
	CommandsIgnored *prometheus.CounterVec // labels: command
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lede",
			Name:      "frames_written_total",
			Help:      "Command frames written to the bulb.",
		}, []string{"opcode"}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lede",
			Name:      "bytes_written_total",
			Help:      "Bytes written to the bulb control characteristic.",
		}),
		WriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lede",
			Name:      "write_failures_total",
			Help:      "Frames the transport failed to write.",
		}, []string{"opcode"}),
		CommandsIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lede",
			Name:      "commands_ignored_total",
			Help:      "Commands dropped because their argument was out of range.",
		}, []string{"command"}),
	}
	reg.MustRegister(m.FramesWritten, m.BytesWritten, m.WriteFailures, m.CommandsIgnored)
	return m
}

func opcodeLabel(op byte) string {
	return fmt.Sprintf("0x%02x", op)
}

func (m *Metrics) FrameWritten(opcode byte, size int) {
	m.FramesWritten.WithLabelValues(opcodeLabel(opcode)).Inc()
	m.BytesWritten.Add(float64(size))
}

func (m *Metrics) WriteFailed(opcode byte) {
	m.WriteFailures.WithLabelValues(opcodeLabel(opcode)).Inc()
}

func (m *Metrics) CommandIgnored(command string) {
	m.CommandsIgnored.WithLabelValues(command).Inc()
}

// Summary renders every non-zero counter in g as "name{labels} value" lines, sorted.
func Summary(g prometheus.Gatherer) ([]string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			c := metric.GetCounter()
			if c == nil || c.GetValue() == 0 {
				continue
			}
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, c.GetValue()))
		}
	}
	sort.Strings(lines)
	return lines, nil
}
