package domain

import "time"

type SessionState string

const (
	StateActive            SessionState = "active"
	StateDecided           SessionState = "decided"
	StateExpiredUnresolved SessionState = "expired_unresolved"
	StateEnded             SessionState = "ended"
)

// Resolution is what a session snapshot resolves to at a point in time.
// DecisionA and DecisionB carry the decisions to persist with the terminal
// write, with pending coerced to no where the outcome requires it.
type Resolution struct {
	State     SessionState
	Reason    EndedReason
	DecisionA Decision
	DecisionB Decision
	EndedBy   *int
}

// Terminal reports whether the session is already ended in storage.
func (r Resolution) Terminal() bool {
	return r.State == StateEnded
}

// NeedsWrite reports whether a process observing this resolution should
// attempt the terminal write.
func (r Resolution) NeedsWrite() bool {
	return r.State == StateDecided || r.State == StateExpiredUnresolved
}

// NeedsFinalize reports whether the terminal write must go through the
// friendship finalizer.
func (r Resolution) NeedsFinalize() bool {
	return r.State == StateDecided && r.Reason == EndedBothYes
}

// Resolve maps a snapshot to its outcome. It depends only on the snapshot and
// now, so every participant evaluating the same snapshot agrees. Submitted
// decisions are considered before expiry: a decision that committed before the
// timeout write is honoured.
func Resolve(s MatchSession, now time.Time) Resolution {
	if s.Ended {
		r := Resolution{State: StateEnded, DecisionA: s.DecisionA, DecisionB: s.DecisionB, EndedBy: s.EndedBy}
		if s.EndedReason != nil {
			r.Reason = *s.EndedReason
		}
		return r
	}

	a, b := s.DecisionA, s.DecisionB
	switch {
	case a == DecisionYes && b == DecisionYes:
		return Resolution{State: StateDecided, Reason: EndedBothYes, DecisionA: a, DecisionB: b}
	case a == DecisionNo && b == DecisionNo:
		return Resolution{State: StateDecided, Reason: EndedBothNo, DecisionA: a, DecisionB: b}
	case a == DecisionNo || b == DecisionNo:
		return Resolution{State: StateDecided, Reason: EndedOneNo, DecisionA: a, DecisionB: b}
	}

	if !now.Before(s.ExpiresAt) {
		return Resolution{
			State:     StateExpiredUnresolved,
			Reason:    EndedTimeout,
			DecisionA: coercePending(a),
			DecisionB: coercePending(b),
		}
	}

	return Resolution{State: StateActive, DecisionA: a, DecisionB: b}
}

// Abandon resolves an explicit leave (or detachment signal) by leaverID.
// A snapshot that already resolves on its own keeps that outcome, so a leave
// racing a mutual yes or an expiry converges on the same terminal state as
// every other observer.
func Abandon(s MatchSession, leaverID int, now time.Time) (Resolution, error) {
	r := Resolve(s, now)
	if r.State != StateActive {
		return r, nil
	}
	side, ok := s.SideOf(leaverID)
	if !ok {
		return Resolution{}, ErrNotParticipant
	}

	r = Resolution{State: StateDecided, Reason: EndedAbandoned, DecisionA: s.DecisionA, DecisionB: s.DecisionB}
	if side == SideA {
		r.DecisionA = coercePending(r.DecisionA)
	} else {
		r.DecisionB = coercePending(r.DecisionB)
	}
	r.EndedBy = &leaverID
	return r, nil
}

// RemainingSeconds is the whole seconds left before expiresAt, rounded up and
// never negative. Callers recompute it from the stored expiry on every tick.
func RemainingSeconds(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func coercePending(d Decision) Decision {
	if d == DecisionPending {
		return DecisionNo
	}
	return d
}
