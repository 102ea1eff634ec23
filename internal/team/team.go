// internal/team/team.go

// Package team holds the pure roster operations: shuffling an ordering and
// splitting a roster into two balanced teams. Nothing here touches farm
// state; callers pass a snapshot and format the result themselves.
package team

import (
	"math/rand"

	"github.com/protanki-tools/farmbot/internal/models"
)

// Shuffle returns a uniformly-random permutation of the players. The input
// slice is left untouched.
func Shuffle(players []models.Player) []models.Player {
	out := make([]models.Player, len(players))
	copy(out, players)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Split partitions the roster into two teams. M2-tagged players alternate
// between the teams in roster order so that sub-group stays evenly spread;
// everyone else is shuffled and then greedily appended to whichever team is
// currently smaller, ties going to the first team. Team sizes end up within
// one of each other, as do the per-team M2 counts.
func Split(players []models.Player) (teamA, teamB []models.Player) {
	var m2, rest []models.Player
	for _, p := range players {
		if p.Mod == models.ModM2 {
			m2 = append(m2, p)
		} else {
			rest = append(rest, p)
		}
	}

	for i, p := range m2 {
		if i%2 == 0 {
			teamA = append(teamA, p)
		} else {
			teamB = append(teamB, p)
		}
	}

	for _, p := range Shuffle(rest) {
		if len(teamB) < len(teamA) {
			teamB = append(teamB, p)
		} else {
			teamA = append(teamA, p)
		}
	}
	return teamA, teamB
}
