package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordQuery(t *testing.T) {
	before := testutil.ToFloat64(QueryErrors.WithLabelValues("metrics_test"))
	RecordQuery("metrics_test", 3*time.Millisecond, nil)
	RecordQuery("metrics_test", 3*time.Millisecond, errors.New("boom"))
	after := testutil.ToFloat64(QueryErrors.WithLabelValues("metrics_test"))
	if after-before != 1 {
		t.Errorf("query errors delta = %v, want 1", after-before)
	}
}

func TestRecordWarehouseFlush(t *testing.T) {
	okBefore := testutil.ToFloat64(WarehouseFlushes.WithLabelValues("ok"))
	rowsBefore := testutil.ToFloat64(WarehouseRows)
	errBefore := testutil.ToFloat64(WarehouseFlushes.WithLabelValues("error"))

	RecordWarehouseFlush(12, nil)
	RecordWarehouseFlush(5, errors.New("down"))

	if d := testutil.ToFloat64(WarehouseFlushes.WithLabelValues("ok")) - okBefore; d != 1 {
		t.Errorf("ok flushes delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(WarehouseRows) - rowsBefore; d != 12 {
		t.Errorf("rows delta = %v, want 12", d)
	}
	if d := testutil.ToFloat64(WarehouseFlushes.WithLabelValues("error")) - errBefore; d != 1 {
		t.Errorf("error flushes delta = %v, want 1", d)
	}
}
