// internal/bot/bot.go

// Package bot dispatches incoming Discord events onto the farm lifecycle
// controller: the /createfarm command, the session buttons and the add/remove
// modals.
package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/protanki-tools/farmbot/internal/discord"
	"github.com/protanki-tools/farmbot/internal/farm"
)

// Bot ties the Discord session to the controller and the platform adapter.
type Bot struct {
	session *discordgo.Session
	adapter *discord.Adapter
	ctrl    *farm.Controller
	log     *logrus.Logger
}

// New builds the Bot and registers its gateway handlers on the session.
func New(session *discordgo.Session, adapter *discord.Adapter, ctrl *farm.Controller, log *logrus.Logger) *Bot {
	b := &Bot{
		session: session,
		adapter: adapter,
		ctrl:    ctrl,
		log:     log,
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	return b
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.WithFields(logrus.Fields{
		"username": r.User.Username,
		"guilds":   len(r.Guilds),
	}).Info("bot logged in")
}

// RegisterCommands overwrites the application command set. With a guild id
// the commands are registered guild-scoped (instant), otherwise globally.
func (b *Bot) RegisterCommands(appID, guildID string) error {
	manageChannels := int64(discordgo.PermissionManageChannels)
	minPlayers := 1.0

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "createfarm",
			Description:              "Create a new ProTanki farm session.",
			DefaultMemberPermissions: &manageChannels,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "Farm title (used for role & channel name)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "max_players",
					Description: "Maximum number of players allowed",
					Required:    true,
					MinValue:    &minPlayers,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "duration",
					Description: "Duration in minutes (for display only)",
					Required:    true,
				},
			},
		},
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(appID, guildID, commands)
	return err
}
