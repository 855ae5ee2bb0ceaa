package core

import "time"

// Phase is the current stage of a room's round.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseVoting    Phase = "voting"
	PhaseResults   Phase = "results"
)

// roundTimings are the fixed phase durations. The debate length itself comes
// from room settings; everything here is the same for every room.
type roundTimings struct {
	countdown time.Duration
	extension time.Duration
	grace     time.Duration
	voting    time.Duration
	results   time.Duration
}

func defaultTimings() roundTimings {
	return roundTimings{
		countdown: 3 * time.Second,
		extension: 30 * time.Second,
		grace:     15 * time.Second,
		voting:    30 * time.Second,
		results:   10 * time.Second,
	}
}

// round holds the state machine data for one room. The zero value plus
// reset() is a round sitting in lobby.
type round struct {
	phase      Phase
	deadline   time.Time
	timeUp     bool
	word       string
	impostorID string

	// accusations maps voter id to accused id; a re-accuse overwrites.
	accusations map[string]string
	// confirmed marks voters whose choice is final.
	confirmed map[string]bool
}

func (r *round) reset() {
	r.phase = PhaseLobby
	r.deadline = time.Time{}
	r.timeUp = false
	r.word = ""
	r.impostorID = ""
	r.accusations = make(map[string]string)
	r.confirmed = make(map[string]bool)
}

// active reports whether a round is in progress (settings locked).
func (r *round) active() bool {
	return r.phase != PhaseLobby
}

// dropVoter removes every trace of a departed player from the vote state.
// Accusations pointing at the departed player are discarded as well, so the
// tally never names someone who already left.
func (r *round) dropVoter(id string) {
	delete(r.accusations, id)
	delete(r.confirmed, id)
	for voter, accused := range r.accusations {
		if accused == id {
			delete(r.accusations, voter)
			delete(r.confirmed, voter)
		}
	}
}

// tally computes the plurality outcome from the latest accusation of each
// voter. Ties eliminate no one.
func (r *round) tally(players []*Player) *VoteResult {
	counts := make(map[string]int, len(players))
	for _, accused := range r.accusations {
		counts[accused]++
	}

	best, bestCount, tie := "", 0, false
	for accused, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount, tie = accused, n, false
		case n == bestCount && n > 0:
			tie = true
		}
	}

	result := &VoteResult{
		ImpostorID: r.impostorID,
		Counts:     counts,
		Tie:        tie,
	}
	if tie || best == "" {
		return result
	}

	result.AccusedID = best
	for _, p := range players {
		if p.ID == best {
			result.AccusedNickname = p.Nickname
			break
		}
	}
	return result
}
