package core

// Settings bounds, matching what the room UI offers.
const (
	MinTimerSeconds = 10
	MinPlayers      = 3
	MaxPlayersCap   = 10
)

// Settings holds the host-adjustable room configuration.
type Settings struct {
	TimerSeconds int
	MaxPlayers   int
}

// DefaultSettings returns the configuration a fresh room starts with.
func DefaultSettings() Settings {
	return Settings{TimerSeconds: 60, MaxPlayers: 4}
}

// validate checks the requested settings against the fixed bounds and the
// current occupancy. maxPlayers can never drop below the players already in.
func (s Settings) validate(occupancy int) error {
	if s.TimerSeconds < MinTimerSeconds {
		return ErrInvalidSettings
	}
	if s.MaxPlayers < MinPlayers || s.MaxPlayers > MaxPlayersCap {
		return ErrInvalidSettings
	}
	if s.MaxPlayers < occupancy {
		return ErrInvalidSettings
	}
	return nil
}
