package domain

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(a, b Decision, ttl time.Duration) MatchSession {
	s := NewMatchSession("s1", 1, 2, t0, ttl)
	s.DecisionA = a
	s.DecisionB = b
	return *s
}

func TestResolve(t *testing.T) {
	cases := []struct {
		name    string
		a, b    Decision
		elapsed time.Duration
		state   SessionState
		reason  EndedReason
		outA    Decision
		outB    Decision
	}{
		{"fresh", DecisionPending, DecisionPending, 0, StateActive, "", DecisionPending, DecisionPending},
		{"one yes", DecisionYes, DecisionPending, time.Minute, StateActive, "", DecisionYes, DecisionPending},
		{"both yes", DecisionYes, DecisionYes, time.Minute, StateDecided, EndedBothYes, DecisionYes, DecisionYes},
		{"yes and no", DecisionYes, DecisionNo, time.Minute, StateDecided, EndedOneNo, DecisionYes, DecisionNo},
		{"no and pending", DecisionNo, DecisionPending, time.Minute, StateDecided, EndedOneNo, DecisionNo, DecisionPending},
		{"both no", DecisionNo, DecisionNo, time.Minute, StateDecided, EndedBothNo, DecisionNo, DecisionNo},
		{"expired pending", DecisionPending, DecisionPending, 5 * time.Minute, StateExpiredUnresolved, EndedTimeout, DecisionNo, DecisionNo},
		{"expired one yes", DecisionYes, DecisionPending, 5 * time.Minute, StateExpiredUnresolved, EndedTimeout, DecisionYes, DecisionNo},
		{"exactly at expiry", DecisionPending, DecisionYes, 4 * time.Minute, StateExpiredUnresolved, EndedTimeout, DecisionNo, DecisionYes},
		{"late both yes wins over expiry", DecisionYes, DecisionYes, time.Hour, StateDecided, EndedBothYes, DecisionYes, DecisionYes},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(newSession(tt.a, tt.b, 4*time.Minute), t0.Add(tt.elapsed))
			if got.State != tt.state || got.Reason != tt.reason {
				t.Fatalf("Resolve = (%s, %s), want (%s, %s)", got.State, got.Reason, tt.state, tt.reason)
			}
			if got.DecisionA != tt.outA || got.DecisionB != tt.outB {
				t.Fatalf("decisions = (%s, %s), want (%s, %s)", got.DecisionA, got.DecisionB, tt.outA, tt.outB)
			}
		})
	}
}

func TestResolveTimeoutAfterShortTTL(t *testing.T) {
	s := newSession(DecisionPending, DecisionPending, 4*time.Second)
	got := Resolve(s, t0.Add(5*time.Second))
	if got.Reason != EndedTimeout || got.DecisionA != DecisionNo || got.DecisionB != DecisionNo {
		t.Fatalf("Resolve = %+v, want timeout with both no", got)
	}
	if !got.NeedsWrite() || got.NeedsFinalize() {
		t.Fatalf("timeout should need a plain terminal write")
	}
}

func TestResolveEndedIsStable(t *testing.T) {
	s := newSession(DecisionYes, DecisionNo, time.Minute)
	reason := EndedOneNo
	s.Ended = true
	s.EndedReason = &reason

	for _, now := range []time.Time{t0, t0.Add(time.Hour), t0.Add(-time.Hour)} {
		got := Resolve(s, now)
		if !got.Terminal() || got.Reason != EndedOneNo || got.NeedsWrite() {
			t.Fatalf("Resolve(ended, %v) = %+v", now, got)
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	s := newSession(DecisionYes, DecisionPending, time.Minute)
	now := t0.Add(2 * time.Minute)
	first := Resolve(s, now)
	for i := 0; i < 10; i++ {
		if got := Resolve(s, now); got != first {
			t.Fatalf("Resolve changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestAbandon(t *testing.T) {
	s := newSession(DecisionYes, DecisionPending, time.Minute)

	got, err := Abandon(s, 2, t0.Add(10*time.Second))
	if err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if got.Reason != EndedAbandoned || got.DecisionA != DecisionYes || got.DecisionB != DecisionNo {
		t.Fatalf("Abandon = %+v", got)
	}
	if got.EndedBy == nil || *got.EndedBy != 2 {
		t.Fatalf("EndedBy = %v, want 2", got.EndedBy)
	}
}

func TestAbandonKeepsSelfResolvingOutcome(t *testing.T) {
	bothYes := newSession(DecisionYes, DecisionYes, time.Minute)
	got, err := Abandon(bothYes, 1, t0.Add(time.Second))
	if err != nil || !got.NeedsFinalize() {
		t.Fatalf("Abandon(both yes) = %+v, %v; want finalize", got, err)
	}

	expired := newSession(DecisionPending, DecisionPending, time.Minute)
	got, err = Abandon(expired, 1, t0.Add(2*time.Minute))
	if err != nil || got.Reason != EndedTimeout || got.EndedBy != nil {
		t.Fatalf("Abandon(expired) = %+v, %v; want timeout", got, err)
	}
}

func TestAbandonRejectsOutsider(t *testing.T) {
	s := newSession(DecisionPending, DecisionPending, time.Minute)
	if _, err := Abandon(s, 99, t0); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
}

func TestRemainingSeconds(t *testing.T) {
	exp := t0.Add(240 * time.Second)
	cases := []struct {
		now  time.Time
		want int
	}{
		{t0, 240},
		{t0.Add(500 * time.Millisecond), 240},
		{t0.Add(time.Second), 239},
		{t0.Add(239*time.Second + time.Millisecond), 1},
		{exp, 0},
		{exp.Add(time.Hour), 0},
	}
	for _, tt := range cases {
		if got := RemainingSeconds(exp, tt.now); got != tt.want {
			t.Fatalf("RemainingSeconds(%v) = %d, want %d", tt.now.Sub(t0), got, tt.want)
		}
	}
}

func TestParseDecision(t *testing.T) {
	for _, in := range []string{"yes", "no"} {
		if _, err := ParseDecision(in); err != nil {
			t.Fatalf("ParseDecision(%q): %v", in, err)
		}
	}
	for _, in := range []string{"pending", "", "YES", "maybe"} {
		if _, err := ParseDecision(in); !errors.Is(err, ErrInvalidDecision) {
			t.Fatalf("ParseDecision(%q) err = %v", in, err)
		}
	}
}
