package core

import (
	"crypto/rand"
	"math/big"
)

// WordProvider assigns the secret word and the impostor seat for a round.
// Real gameplay content is expected to come from an external provider; the
// built-in one only keeps the server playable on its own.
type WordProvider interface {
	Assign(players []PlayerInfo) (word string, impostorID string)
}

// StaticWordProvider picks uniformly from a fixed word list.
type StaticWordProvider struct {
	Words []string
}

// DefaultWordProvider returns a provider with a small built-in list.
func DefaultWordProvider() *StaticWordProvider {
	return &StaticWordProvider{Words: []string{
		"DETECTIVE", "PIRATA", "ASTRONAUTA", "VAMPIRO", "PAYASO",
		"BOMBERO", "CIENTIFICO", "FANTASMA", "ROBOT", "ESPIA",
	}}
}

func (p *StaticWordProvider) Assign(players []PlayerInfo) (string, string) {
	word := p.Words[randIndex(len(p.Words))]
	impostor := players[randIndex(len(players))].ID
	return word, impostor
}

func randIndex(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
