// internal/discord/render.go
package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/protanki-tools/farmbot/internal/models"
)

const (
	colorOpen      = 0x1abc9c
	colorFinalized = 0xff4d4d
	colorEnded     = 0x9b1c31
)

// SessionEmbed renders the farm's public status card.
func SessionEmbed(snap models.FarmSnapshot) *discordgo.MessageEmbed {
	color := colorOpen
	status := "🟢 Open for Join"
	if snap.Finalized {
		color = colorFinalized
		status = "🔒 Finalized (Locked)"
	}

	roster := "_No players joined yet._"
	if len(snap.Players) > 0 {
		var lines []string
		for i, p := range snap.Players {
			line := fmt.Sprintf("%d. %s", i+1, p.Name)
			if p.Mod != models.ModNone {
				line += fmt.Sprintf(" — %s", p.Mod)
			}
			lines = append(lines, line)
		}
		roster = strings.Join(lines, "\n")
	}

	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: "ProTanki Farm Session"},
		Title:  fmt.Sprintf("🌾 %s", snap.Title),
		Color:  color,
		Description: fmt.Sprintf(
			"**👑 Host:** <@%s>\n**👥 Players:** %d/%d\n**⏱ Duration:** %d minutes\n**📊 Status:** %s",
			snap.HostID, len(snap.Players), snap.MaxPlayers, snap.Duration, status,
		),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 Participants", Value: roster},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "ProTanki Organizer"},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// EndedEmbed renders the terminal card that replaces the session message
// after End.
func EndedEmbed(title string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("💀 %s (Ended)", title),
		Description: "The farm has ended. Channel & role deleted.",
		Color:       colorEnded,
	}
}

// SessionButtons builds the three control rows attached to the session
// message. The join button is disabled while the farm is finalized.
func SessionButtons(farmID string, finalized bool) []discordgo.MessageComponent {
	finalizeLabel, finalizeEmoji, finalizeStyle := "Finalize", "🛑", discordgo.DangerButton
	if finalized {
		finalizeLabel, finalizeEmoji, finalizeStyle = "Unfinalize", "🔓", discordgo.SecondaryButton
	}

	row1 := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		button(ActionJoin, farmID, "Join Farm", "🟢", discordgo.SuccessButton, finalized),
		button(ActionLeave, farmID, "Leave Farm", "🔴", discordgo.SecondaryButton, false),
		button(ActionFinalize, farmID, finalizeLabel, finalizeEmoji, finalizeStyle, false),
	}}
	row2 := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		button(ActionAdd, farmID, "Add Player", "➕", discordgo.PrimaryButton, false),
		button(ActionRemove, farmID, "Remove Player", "➖", discordgo.SecondaryButton, false),
		button(ActionShuffle, farmID, "Gold List", "🔀", discordgo.PrimaryButton, false),
		button(ActionSplit, farmID, "Split Teams", "⚖️", discordgo.SecondaryButton, false),
		button(ActionPing, farmID, "Ping Everyone", "📣", discordgo.PrimaryButton, false),
	}}
	row3 := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		button(ActionEnd, farmID, "End Farm", "🧹", discordgo.DangerButton, false),
	}}
	return []discordgo.MessageComponent{row1, row2, row3}
}

// ModChoiceRow builds the ephemeral M2/M3 declaration row. With an empty arg
// the choice joins the clicking user; with a player key it tags that
// manually-added player instead.
func ModChoiceRow(farmID, arg string) []discordgo.MessageComponent {
	m2 := Action{Kind: ActionModM2, FarmID: farmID, Arg: arg}
	m3 := Action{Kind: ActionModM3, FarmID: farmID, Arg: arg}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: m2.CustomID(),
				Label:    "Freeze M2",
				Emoji:    &discordgo.ComponentEmoji{Name: "❄️"},
				Style:    discordgo.PrimaryButton,
			},
			discordgo.Button{
				CustomID: m3.CustomID(),
				Label:    "Freeze M3",
				Emoji:    &discordgo.ComponentEmoji{Name: "⚡"},
				Style:    discordgo.SecondaryButton,
			},
		}},
	}
}

// ConfirmEndRow builds the confirm/cancel pair shown before a farm is torn
// down.
func ConfirmEndRow(farmID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			button(ActionConfirmEnd, farmID, "✅ Confirm End", "", discordgo.DangerButton, false),
			button(ActionCancelEnd, farmID, "❌ Cancel", "", discordgo.SecondaryButton, false),
		}},
	}
}

func button(kind ActionKind, farmID, label, emoji string, style discordgo.ButtonStyle, disabled bool) discordgo.Button {
	b := discordgo.Button{
		CustomID: Action{Kind: kind, FarmID: farmID}.CustomID(),
		Label:    label,
		Style:    style,
		Disabled: disabled,
	}
	if emoji != "" {
		b.Emoji = &discordgo.ComponentEmoji{Name: emoji}
	}
	return b
}
