package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPackage(t *testing.T) {
	m := New()
	m.RecordPackage("ok", 20*time.Millisecond)
	m.RecordPackage("ok", 30*time.Millisecond)
	m.RecordPackage("failed", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PackagesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PackagesTotal.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PackageDuration))
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.BehaviorsTotal.Add(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(a.BehaviorsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.BehaviorsTotal))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordsTotal.WithLabelValues("asset").Add(17)

	path := filepath.Join(t.TempDir(), "slidegraph.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `slidegraph_records_total{table="asset"} 17`)
}
