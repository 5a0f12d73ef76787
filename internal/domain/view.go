package domain

import "time"

// SessionView is a participant's projection of a session at one instant.
type SessionView struct {
	SessionID        string       `json:"session_id"`
	State            SessionState `json:"state"`
	Ended            bool         `json:"ended"`
	EndedReason      EndedReason  `json:"ended_reason,omitempty"`
	EndedBy          *int         `json:"ended_by,omitempty"`
	PartnerID        int          `json:"partner_id,omitempty"`
	MyDecision       Decision     `json:"my_decision"`
	PartnerDecided   bool         `json:"partner_decided"`
	OwesDecision     bool         `json:"owes_decision"`
	RemainingSeconds int          `json:"remaining_seconds"`
	ExpiresAt        time.Time    `json:"expires_at"`
	ChannelWritable  bool         `json:"channel_writable"`
	Friends          bool         `json:"friends"`
}

// Project computes userID's view of the snapshot. The partner's actual answer
// is only revealed once the session has ended.
func Project(s MatchSession, userID int, now time.Time) SessionView {
	r := Resolve(s, now)
	v := SessionView{
		SessionID:       s.ID,
		State:           r.State,
		Ended:           s.Ended,
		ExpiresAt:       s.ExpiresAt,
		ChannelWritable: s.ChannelWritable(),
	}
	if s.Ended {
		v.EndedReason = r.Reason
		v.EndedBy = s.EndedBy
		v.Friends = r.Reason == EndedBothYes
	} else {
		v.RemainingSeconds = RemainingSeconds(s.ExpiresAt, now)
	}

	side, ok := s.SideOf(userID)
	if !ok {
		return v
	}
	partner, _ := s.GetOtherUserID(userID)
	v.PartnerID = partner
	v.MyDecision = s.DecisionOf(side)
	other := SideB
	if side == SideB {
		other = SideA
	}
	v.PartnerDecided = s.DecisionOf(other) != DecisionPending
	v.OwesDecision = r.State == StateActive && v.MyDecision == DecisionPending
	return v
}

// GoneView is the projection of a session record that no longer exists;
// a missing session is treated as already ended.
func GoneView(sessionID string) SessionView {
	return SessionView{SessionID: sessionID, State: StateEnded, Ended: true}
}
