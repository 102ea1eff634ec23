// internal/discord/render_test.go
package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protanki-tools/farmbot/internal/models"
)

func TestSessionEmbedOpenFarm(t *testing.T) {
	snap := models.FarmSnapshot{
		Title:      "Gold Rush",
		MaxPlayers: 4,
		Duration:   90,
		HostID:     "host-1",
		Players: []models.Player{
			{ID: "u1", Name: "Alice", Mod: models.ModM2},
			{Name: "Bob"},
		},
	}

	embed := SessionEmbed(snap)
	assert.Equal(t, colorOpen, embed.Color)
	assert.Contains(t, embed.Description, "2/4")
	assert.Contains(t, embed.Description, "Open for Join")

	require.Len(t, embed.Fields, 1)
	assert.Contains(t, embed.Fields[0].Value, "1. Alice — M2")
	assert.Contains(t, embed.Fields[0].Value, "2. Bob")
}

func TestSessionEmbedFinalizedFarm(t *testing.T) {
	embed := SessionEmbed(models.FarmSnapshot{Title: "Gold Rush", MaxPlayers: 2, Finalized: true})
	assert.Equal(t, colorFinalized, embed.Color)
	assert.Contains(t, embed.Description, "Finalized")
	assert.Contains(t, embed.Fields[0].Value, "No players joined yet")
}

func TestSessionButtonsDisableJoinWhenFinalized(t *testing.T) {
	rows := SessionButtons("farm-1", true)
	require.Len(t, rows, 3)

	row, ok := rows[0].(discordgo.ActionsRow)
	require.True(t, ok)
	join, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	assert.True(t, join.Disabled)
	assert.Equal(t, "join:farm-1", join.CustomID)

	finalize, ok := row.Components[2].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, "Unfinalize", finalize.Label)
}

func TestChannelNameSanitization(t *testing.T) {
	cases := map[string]string{
		"Gold Rush":        "gold-rush",
		"  XP  Farm 2024 ": "xp-farm-2024",
		"Ω???":             "farm",
		"already-clean":    "already-clean",
	}
	for in, want := range cases {
		assert.Equal(t, want, channelName(in), "title %q", in)
	}
}

func TestMatchesOrganizerSpellings(t *testing.T) {
	assert.True(t, matchesOrganizer("Farm Organizer", "farm organizer"))
	assert.True(t, matchesOrganizer("farm organiser", "farm organizer"))
	assert.False(t, matchesOrganizer("farmhand", "farm organizer"))
	assert.False(t, matchesOrganizer("", "farm organizer"))
}
