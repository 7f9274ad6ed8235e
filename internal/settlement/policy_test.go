package settlement

import (
	"testing"
	"time"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/config"
)

func TestPolicyFromConfigPrefersMinutesMode(t *testing.T) {
	policy := PolicyFromConfig(config.SettlementConfig{Minutes: 20, Days: 1})
	if _, ok := policy.(RelativeMinutes); !ok {
		t.Fatalf("expected RelativeMinutes, got %T", policy)
	}

	policy = PolicyFromConfig(config.SettlementConfig{Days: 1, CutoffHour: 16, SettleHour: 10})
	if _, ok := policy.(CutoffDays); !ok {
		t.Fatalf("expected CutoffDays, got %T", policy)
	}
}

func TestExpectedAtRelativeMinutes(t *testing.T) {
	paidAt := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)

	expected, err := ExpectedAt(paidAt, RelativeMinutes{Minutes: 20})
	if err != nil {
		t.Fatalf("ExpectedAt: %v", err)
	}
	if !expected.Equal(paidAt.Add(20 * time.Minute)) {
		t.Fatalf("expected paidAt+20m, got %s", expected)
	}
}

func TestDueRelativeMinutesBoundary(t *testing.T) {
	paidAt := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	policy := RelativeMinutes{Minutes: 20}
	expected, _ := ExpectedAt(paidAt, policy)

	if Due(paidAt.Add(19*time.Minute), paidAt, expected, policy) {
		t.Fatal("payment must not be due at paidAt+19m")
	}
	if !Due(paidAt.Add(20*time.Minute), paidAt, expected, policy) {
		t.Fatal("payment must be due at paidAt+20m")
	}
}

func TestExpectedAtCutoffRollsPastCutoffAndWeekend(t *testing.T) {
	policy := CutoffDays{Days: 1, CutoffHour: 16, SettleHour: 10, SkipWeekends: true}

	// Monday 17:00 is past the 16:00 cutoff, so the effective capture day is
	// Tuesday; +1 settlement day lands on Wednesday, a weekday.
	paidAt := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC) // Monday
	expected, err := ExpectedAt(paidAt, policy)
	if err != nil {
		t.Fatalf("ExpectedAt: %v", err)
	}
	want := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) // Wednesday 10:00
	if !expected.Equal(want) {
		t.Fatalf("expected %s, got %s", want, expected)
	}

	// Friday 17:00 -> effective Saturday -> +1 day is Sunday -> rolls to Monday.
	paidAt = time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC) // Friday
	expected, err = ExpectedAt(paidAt, policy)
	if err != nil {
		t.Fatalf("ExpectedAt: %v", err)
	}
	want = time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) // Monday 10:00
	if !expected.Equal(want) {
		t.Fatalf("expected %s, got %s", want, expected)
	}
}

func TestExpectedAtCutoffBeforeCutoffStaysSameDay(t *testing.T) {
	policy := CutoffDays{Days: 1, CutoffHour: 16, SettleHour: 10}

	paidAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // Monday morning
	expected, err := ExpectedAt(paidAt, policy)
	if err != nil {
		t.Fatalf("ExpectedAt: %v", err)
	}
	want := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC) // Tuesday 10:00
	if !expected.Equal(want) {
		t.Fatalf("expected %s, got %s", want, expected)
	}
}

func TestDueCutoffModeGatesOnWeekend(t *testing.T) {
	policy := CutoffDays{Days: 1, CutoffHour: 16, SettleHour: 10, SkipWeekends: true}
	paidAt := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC) // Thursday
	expected, _ := ExpectedAt(paidAt, policy)             // Friday 10:00

	if Due(expected.Add(-time.Hour), paidAt, expected, policy) {
		t.Fatal("not due before expected date")
	}
	if !Due(expected, paidAt, expected, policy) {
		t.Fatal("due at expected date on a weekday")
	}
	saturday := time.Date(2026, 3, 7, 11, 0, 0, 0, time.UTC)
	if Due(saturday, paidAt, expected, policy) {
		t.Fatal("weekend days must not settle when SkipWeekends is set")
	}
	monday := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	if !Due(monday, paidAt, expected, policy) {
		t.Fatal("due again on the following Monday")
	}
}

func TestDueCutoffModeAllowsWeekendWhenNotSkipping(t *testing.T) {
	policy := CutoffDays{Days: 1, CutoffHour: 16, SettleHour: 10, SkipWeekends: false}
	paidAt := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC) // Friday
	expected, _ := ExpectedAt(paidAt, policy)             // Saturday 10:00

	saturday := time.Date(2026, 3, 7, 11, 0, 0, 0, time.UTC)
	if !Due(saturday, paidAt, expected, policy) {
		t.Fatal("weekend settlement allowed when SkipWeekends is off")
	}
}
