package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlsorensen/golede/pkg/bulbs/lede"
)

var _ lede.Recorder = (*Metrics)(nil)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FrameWritten(0x0a, 12)
	m.FrameWritten(0x0a, 12)
	m.FrameWritten(0x0d, 17)
	m.WriteFailed(0x0c)
	m.CommandIgnored("preset")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesWritten.WithLabelValues("0x0a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesWritten.WithLabelValues("0x0d")))
	assert.Equal(t, 41.0, testutil.ToFloat64(m.BytesWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WriteFailures.WithLabelValues("0x0c")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsIgnored.WithLabelValues("preset")))
}

func TestSummary(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.FrameWritten(0x0a, 12)
	m.CommandIgnored("brightness")

	lines, err := Summary(reg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`lede_bytes_written_total 12`,
		`lede_commands_ignored_total{command="brightness"} 1`,
		`lede_frames_written_total{opcode="0x0a"} 1`,
	}, lines)
}
