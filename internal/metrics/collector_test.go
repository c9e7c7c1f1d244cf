package metrics

import (
	"testing"
	"time"
)

func TestNewCollectorDefaults(t *testing.T) {
	collector := NewCollector()

	if collector == nil {
		t.Fatal("expected collector instance")
	}

	if collector.windowSize != 24*time.Hour {
		t.Fatalf("unexpected window size: %v", collector.windowSize)
	}

	if len(collector.metrics) != 0 {
		t.Fatalf("expected empty metrics slice, got %d", len(collector.metrics))
	}

	if collector.toolUsage == nil {
		t.Fatal("expected toolUsage map to be initialized")
	}

	if collector.alertThresholds["proof_success"] != 0.60 {
		t.Fatalf("unexpected proof_success threshold: %v", collector.alertThresholds["proof_success"])
	}

	if collector.alertThresholds["claim_grounded"] != 0.80 {
		t.Fatalf("unexpected claim_grounded threshold: %v", collector.alertThresholds["claim_grounded"])
	}
}

func TestRecordMetric(t *testing.T) {
	collector := NewCollector()

	start := time.Now()
	collector.RecordMetric(MetricValue{Type: MetricProofSuccess, Tool: "prove", Value: 0.9, Target: 1.0})

	if len(collector.metrics) != 1 {
		t.Fatalf("expected 1 metric recorded, got %d", len(collector.metrics))
	}

	recorded := collector.metrics[0]
	if recorded.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}

	if recorded.Timestamp.Before(start) {
		t.Fatal("expected timestamp to be set after start")
	}

	if collector.toolUsage["prove"] != 1 {
		t.Fatalf("expected tool usage tracked, got %d", collector.toolUsage["prove"])
	}
}

func TestRecordProofAttempt_RecordsSuccessAndTier(t *testing.T) {
	collector := NewCollector()
	collector.RecordProofAttempt("1 + 1 = 2", "decidable", true)

	recent := collector.Recent()
	if len(recent) != 1 {
		t.Fatalf("expected 1 recorded metric, got %d", len(recent))
	}
	if recent[0].Value != 1.0 {
		t.Errorf("Value = %v, want 1.0 for a successful attempt", recent[0].Value)
	}
	if recent[0].Context["tier"] != "decidable" {
		t.Errorf("Context[tier] = %v, want decidable", recent[0].Context["tier"])
	}
}

func TestRecordVerification_RecordsGroundedAndBudgetGap(t *testing.T) {
	collector := NewCollector()
	collector.RecordVerification("claim1", "grounded", 1.5)
	collector.RecordVerification("claim2", "ungrounded", -3.0)

	if got := collector.Average(MetricClaimGrounded); got != 0.5 {
		t.Errorf("Average(MetricClaimGrounded) = %v, want 0.5", got)
	}
	if got := collector.Average(MetricBudgetGap); got != -0.75 {
		t.Errorf("Average(MetricBudgetGap) = %v, want -0.75", got)
	}
}

func TestRecordLLMCall_AccumulatesCost(t *testing.T) {
	collector := NewCollector()
	collector.RecordLLMCall("claude-3-5-sonnet-20241022", 0.01)
	collector.RecordLLMCall("claude-3-5-sonnet-20241022", 0.02)

	if got := collector.Average(MetricLLMCost); got != 0.015 {
		t.Errorf("Average(MetricLLMCost) = %v, want 0.015", got)
	}
}

func TestRecent_ExcludesMetricsOutsideWindow(t *testing.T) {
	collector := NewCollector()
	collector.windowSize = time.Hour
	collector.metrics = append(collector.metrics, MetricValue{
		Type:      MetricProofSuccess,
		Value:     1.0,
		Timestamp: time.Now().Add(-2 * time.Hour),
	})
	collector.RecordMetric(MetricValue{Type: MetricProofSuccess, Value: 1.0})

	recent := collector.Recent()
	if len(recent) != 1 {
		t.Fatalf("expected 1 metric within the window, got %d", len(recent))
	}
}

func TestAverage_ReturnsZeroWhenNoMatchingMetrics(t *testing.T) {
	collector := NewCollector()
	if got := collector.Average(MetricLLMCost); got != 0 {
		t.Errorf("Average() on an empty collector = %v, want 0", got)
	}
}
