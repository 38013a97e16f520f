package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterRefineMetrics_Idempotent(t *testing.T) {
	RegisterRefineMetrics()
	RegisterRefineMetrics()

	before := testutil.ToFloat64(CascadeStepsTotal.WithLabelValues("reverse_hit"))
	CascadeStepsTotal.WithLabelValues("reverse_hit").Inc()
	if got := testutil.ToFloat64(CascadeStepsTotal.WithLabelValues("reverse_hit")); got != before+1 {
		t.Errorf("cascade_steps_total = %f, want %f", got, before+1)
	}

	AgencyFilterDisabled.Set(1)
	if got := testutil.ToFloat64(AgencyFilterDisabled); got != 1 {
		t.Errorf("agency_filter_disabled = %f", got)
	}
}
