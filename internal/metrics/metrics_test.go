package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestMessagesProcessedTotal_IncrementsByOutcome(t *testing.T) {
	MessagesProcessedTotal.Reset()

	MessagesProcessedTotal.WithLabelValues("replied").Inc()
	MessagesProcessedTotal.WithLabelValues("replied").Inc()
	MessagesProcessedTotal.WithLabelValues("quota_exceeded").Inc()

	m := &dto.Metric{}
	counter, err := MessagesProcessedTotal.GetMetricWithLabelValues("replied")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)
	if m.Counter.GetValue() != 2.0 {
		t.Errorf("expected replied counter 2, got %f", m.Counter.GetValue())
	}

	m = &dto.Metric{}
	counter, err = MessagesProcessedTotal.GetMetricWithLabelValues("quota_exceeded")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)
	if m.Counter.GetValue() != 1.0 {
		t.Errorf("expected quota_exceeded counter 1, got %f", m.Counter.GetValue())
	}
}

func TestStatusBucket(t *testing.T) {
	cases := map[int]string{
		102: "1xx",
		200: "2xx",
		204: "2xx",
		301: "3xx",
		404: "4xx",
		429: "4xx",
		500: "5xx",
		503: "5xx",
	}
	for code, want := range cases {
		if got := statusBucket(code); got != want {
			t.Errorf("statusBucket(%d) = %s, want %s", code, got, want)
		}
	}
}
