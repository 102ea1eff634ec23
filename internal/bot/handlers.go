// internal/bot/handlers.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/protanki-tools/farmbot/internal/discord"
	"github.com/protanki-tools/farmbot/internal/farm"
	"github.com/protanki-tools/farmbot/internal/models"
)

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == "createfarm" {
			b.handleCreateFarm(i)
		}
	case discordgo.InteractionMessageComponent:
		b.handleComponent(i)
	case discordgo.InteractionModalSubmit:
		b.handleModal(i)
	}
}

func (b *Bot) handleCreateFarm(i *discordgo.InteractionCreate) {
	ctx := context.Background()

	var title string
	var maxPlayers, duration int
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "title":
			title = opt.StringValue()
		case "max_players":
			maxPlayers = int(opt.IntValue())
		case "duration":
			duration = int(opt.IntValue())
		}
	}
	if title == "" || maxPlayers < 1 {
		b.replyEphemeral(i, "⚠️ A farm needs a title and room for at least one player.")
		return
	}

	// Provisioning takes several API round-trips, so acknowledge first.
	if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		b.log.WithField("error", err).Warn("createfarm: defer failed")
		return
	}

	f, err := b.ctrl.Create(ctx, farm.CreateParams{
		Title:      title,
		MaxPlayers: maxPlayers,
		Duration:   duration,
		HostID:     i.Member.User.ID,
		GuildID:    i.GuildID,
		ChannelID:  i.ChannelID,
	})
	if err != nil {
		b.log.WithFields(logrus.Fields{"title": title, "error": err}).Error("createfarm failed")
		b.followupEphemeral(i, "⚠️ Could not set up the farm. Check that the bot has Manage Roles and Manage Channels and that the farm category exists.")
		return
	}

	snap, err := b.ctrl.Snapshot(f.ID)
	if err != nil {
		b.followupEphemeral(i, "⚠️ Farm vanished during setup.")
		return
	}

	messageID, err := b.adapter.PublishSession(ctx, snap)
	if err != nil {
		b.log.WithFields(logrus.Fields{"farm_id": f.ID, "error": err}).Error("createfarm: publish failed")
		// Without a session message the farm is unusable; tear it down.
		if endErr := b.ctrl.End(ctx, f.ID, true); endErr != nil {
			b.log.WithFields(logrus.Fields{"farm_id": f.ID, "error": endErr}).Warn("createfarm: cleanup failed")
		}
		b.followupEphemeral(i, "⚠️ Could not post the farm message.")
		return
	}
	if err := b.ctrl.AttachMessage(f.ID, messageID); err != nil {
		b.log.WithFields(logrus.Fields{"farm_id": f.ID, "error": err}).Warn("createfarm: attach message failed")
	}

	b.followupEphemeral(i, fmt.Sprintf("✅ Farm **%s** created successfully!", title))

	welcome := fmt.Sprintf(
		"🎯 **Welcome to %s!**\nPlayers who join this farm will automatically get the farm role and gain access here.\n⏱️ Duration: **%d minutes** _(for reference only; does not auto-delete)._",
		title, duration,
	)
	if err := b.adapter.Announce(ctx, snap.PrivateChannelID, welcome); err != nil {
		b.log.WithFields(logrus.Fields{"farm_id": f.ID, "error": err}).Warn("createfarm: welcome message failed")
	}
}

func (b *Bot) handleComponent(i *discordgo.InteractionCreate) {
	ctx := context.Background()

	action, err := discord.ParseAction(i.MessageComponentData().CustomID)
	if err != nil {
		b.log.WithField("error", err).Warn("component: bad custom id")
		b.replyEphemeral(i, "⚠️ Unknown control.")
		return
	}

	snap, err := b.ctrl.Snapshot(action.FarmID)
	if errors.Is(err, farm.ErrNotFound) {
		b.replyEphemeral(i, "⚠️ This farm is no longer active.")
		return
	}

	userID := i.Member.User.ID
	authorized := b.adapter.IsAuthorized(i, snap.HostID)

	switch action.Kind {
	case discord.ActionJoin:
		b.handleJoinPrompt(i, action.FarmID, userID)

	case discord.ActionModM2, discord.ActionModM3:
		mod := models.ModM2
		if action.Kind == discord.ActionModM3 {
			mod = models.ModM3
		}
		b.handleModChoice(ctx, i, action, userID, mod)

	case discord.ActionLeave:
		switch err := b.ctrl.Leave(ctx, action.FarmID, userID); {
		case errors.Is(err, farm.ErrNotMember):
			b.replyEphemeral(i, "⚠️ You are not part of this farm.")
		case err != nil:
			b.replyEphemeral(i, "⚠️ Could not leave the farm.")
		default:
			b.replyEphemeral(i, "👋 You have left the farm successfully.")
		}

	case discord.ActionFinalize:
		if !authorized {
			b.replyEphemeral(i, "🚫 Admins/Host only.")
			return
		}
		if snap.Finalized {
			err = b.ctrl.Unfinalize(ctx, action.FarmID, true)
		} else {
			err = b.ctrl.Finalize(ctx, action.FarmID, true)
		}
		if err != nil {
			b.replyEphemeral(i, "⚠️ Could not update the farm.")
			return
		}
		if snap.Finalized {
			b.replyEphemeral(i, "🔓 Farm reopened — players can join again.")
		} else {
			b.replyEphemeral(i, "✅ Farm finalized and locked for joining.")
		}

	case discord.ActionAdd:
		if !authorized {
			b.replyEphemeral(i, "🚫 Admins/Host only.")
			return
		}
		b.showPlayerModal(i, discord.Action{Kind: discord.ActionAddModal, FarmID: action.FarmID}, "Add Player Manually")

	case discord.ActionRemove:
		if !authorized {
			b.replyEphemeral(i, "🚫 Admins/Host only.")
			return
		}
		b.showPlayerModal(i, discord.Action{Kind: discord.ActionRemoveModal, FarmID: action.FarmID}, "Remove Player")

	case discord.ActionShuffle:
		if !authorized {
			b.replyEphemeral(i, "🚫 Admins/Host only.")
			return
		}
		switch err := b.ctrl.GoldList(ctx, action.FarmID, true); {
		case errors.Is(err, farm.ErrNotMember):
			b.replyEphemeral(i, "⚠️ No players to shuffle.")
		case err != nil:
			b.replyEphemeral(i, "⚠️ Failed to post the gold list.")
		default:
			b.replyEphemeral(i, "✅ Gold list posted in the farm channel.")
		}

	case discord.ActionSplit:
		if !authorized {
			b.replyEphemeral(i, "🚫 Admins/Host only.")
			return
		}
		switch err := b.ctrl.SplitTeams(ctx, action.FarmID, true); {
		case errors.Is(err, farm.ErrNotMember):
			b.replyEphemeral(i, "⚠️ No players to split.")
		case err != nil:
			b.replyEphemeral(i, "⚠️ Failed to post the teams.")
		default:
			b.replyEphemeral(i, "✅ Teams posted in the farm channel.")
		}

	case discord.ActionPing:
		if !authorized {
			b.replyEphemeral(i, "🚫 Admins/Host only.")
			return
		}
		if len(snap.Players) == 0 {
			b.replyEphemeral(i, "⚠️ No players to ping.")
			return
		}
		// Batches pause between sends, which can outlast the interaction
		// deadline, so acknowledge first and ping in the background.
		b.replyEphemeral(i, "📣 Pinging all players…")
		go func() {
			if err := b.ctrl.PingAll(context.Background(), action.FarmID, true); err != nil {
				b.log.WithFields(logrus.Fields{"farm_id": action.FarmID, "error": err}).Warn("ping failed")
			}
		}()

	case discord.ActionEnd:
		if !authorized {
			b.replyEphemeral(i, "🚫 Admins/Host only.")
			return
		}
		b.replyEphemeralComponents(i,
			"⚠️ End farm? This deletes the private channel and the role.",
			discord.ConfirmEndRow(action.FarmID))

	case discord.ActionConfirmEnd:
		if !authorized {
			b.replyEphemeral(i, "🚫 Admins/Host only.")
			return
		}
		if err := b.ctrl.End(ctx, action.FarmID, true); err != nil {
			b.updateEphemeral(i, "⚠️ Could not end the farm.")
			return
		}
		b.updateEphemeral(i, "✅ Farm ended.")

	case discord.ActionCancelEnd:
		b.updateEphemeral(i, "❌ Cancelled.")
	}
}

// handleJoinPrompt validates admission up front so the user is not sent
// through the mod choice just to be rejected afterwards.
func (b *Bot) handleJoinPrompt(i *discordgo.InteractionCreate, farmID, userID string) {
	switch err := b.ctrl.CheckJoin(farmID, userID); {
	case errors.Is(err, farm.ErrAlreadyMember):
		b.replyEphemeral(i, "ℹ️ You are already in this farm.")
	case errors.Is(err, farm.ErrFull):
		b.replyEphemeral(i, "🚫 Farm is already full.")
	case errors.Is(err, farm.ErrFinalized):
		b.replyEphemeral(i, "🚫 Farm is finalized.")
	case err != nil:
		b.replyEphemeral(i, "⚠️ This farm is no longer active.")
	default:
		b.replyEphemeralComponents(i,
			"Please select your Freeze modification level:",
			discord.ModChoiceRow(farmID, ""))
	}
}

// handleModChoice completes either a self-service join (empty Arg) or a
// deferred tag declaration for a manually-added player (Arg = player key).
func (b *Bot) handleModChoice(ctx context.Context, i *discordgo.InteractionCreate, action discord.Action, userID string, mod models.Mod) {
	if action.Arg != "" {
		switch err := b.ctrl.SetMod(ctx, action.FarmID, action.Arg, mod); {
		case errors.Is(err, farm.ErrNotFound):
			b.updateEphemeral(i, "⚠️ Player not found in farm.")
		case err != nil:
			b.updateEphemeral(i, "⚠️ Could not set the modification level.")
		default:
			b.updateEphemeral(i, fmt.Sprintf("✅ Set **%s** to **%s**.", action.Arg, mod))
		}
		return
	}

	player, err := b.ctrl.Join(ctx, action.FarmID, userID, i.Member.User.Username, mod)
	switch {
	case errors.Is(err, farm.ErrAlreadyMember):
		b.updateEphemeral(i, "⚠️ You have already joined this farm.")
	case errors.Is(err, farm.ErrFull):
		b.updateEphemeral(i, "🚫 Farm is already full.")
	case errors.Is(err, farm.ErrFinalized):
		b.updateEphemeral(i, "🚫 Farm is finalized.")
	case errors.Is(err, farm.ErrNotFound):
		b.updateEphemeral(i, "⚠️ This farm is no longer active.")
	case err != nil:
		b.updateEphemeral(i, "⚠️ Could not join the farm.")
	default:
		b.updateEphemeral(i, fmt.Sprintf("✅ You have successfully joined the farm as **%s**!", player.Mod))
	}
}

func (b *Bot) handleModal(i *discordgo.InteractionCreate) {
	ctx := context.Background()
	data := i.ModalSubmitData()

	action, err := discord.ParseAction(data.CustomID)
	if err != nil {
		b.log.WithField("error", err).Warn("modal: bad custom id")
		b.replyEphemeral(i, "⚠️ Unknown form.")
		return
	}

	name := modalInput(data)
	if name == "" {
		b.replyEphemeral(i, "⚠️ Enter a player name or mention.")
		return
	}

	switch action.Kind {
	case discord.ActionAddModal:
		player, err := b.ctrl.AddManual(ctx, action.FarmID, name)
		switch {
		case errors.Is(err, farm.ErrDuplicate):
			b.replyEphemeral(i, "⚠️ Player already added.")
		case errors.Is(err, farm.ErrNotFound):
			b.replyEphemeral(i, "⚠️ This farm is no longer active.")
		case err != nil:
			b.replyEphemeral(i, "⚠️ Could not add the player.")
		default:
			b.replyEphemeralComponents(i,
				fmt.Sprintf("✅ Added **%s** to the farm. Select their Freeze modification level:", player.Name),
				discord.ModChoiceRow(action.FarmID, player.Name))
		}

	case discord.ActionRemoveModal:
		player, err := b.ctrl.RemoveManual(ctx, action.FarmID, name)
		switch {
		case errors.Is(err, farm.ErrNotFound):
			b.replyEphemeral(i, "⚠️ Player not found in farm.")
		case err != nil:
			b.replyEphemeral(i, "⚠️ Could not remove the player.")
		default:
			b.replyEphemeral(i, fmt.Sprintf("✅ Removed **%s** from the farm.", player.Name))
		}
	}
}

// modalInput pulls the single text input value out of a modal submission.
func modalInput(data discordgo.ModalSubmitInteractionData) string {
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if ti, ok := rc.(*discordgo.TextInput); ok {
				return strings.TrimSpace(ti.Value)
			}
		}
	}
	return ""
}

func (b *Bot) showPlayerModal(i *discordgo.InteractionCreate, action discord.Action, title string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: action.CustomID(),
			Title:    title,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID: "playerName",
						Label:    "Enter player name or mention",
						Style:    discordgo.TextInputShort,
						Required: true,
					},
				}},
			},
		},
	})
	if err != nil {
		b.log.WithField("error", err).Warn("show modal failed")
	}
}

func (b *Bot) replyEphemeral(i *discordgo.InteractionCreate, content string) {
	b.replyEphemeralComponents(i, content, nil)
}

func (b *Bot) replyEphemeralComponents(i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.WithField("error", err).Warn("interaction reply failed")
	}
}

// updateEphemeral rewrites the ephemeral message the interacted component
// belongs to, clearing its controls.
func (b *Bot) updateEphemeral(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		b.log.WithField("error", err).Warn("interaction update failed")
	}
}

func (b *Bot) followupEphemeral(i *discordgo.InteractionCreate, content string) {
	_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		b.log.WithField("error", err).Warn("interaction followup failed")
	}
}
