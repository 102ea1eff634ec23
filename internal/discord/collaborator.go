// internal/discord/collaborator.go

// Package discord implements the platform collaborator over the Discord API:
// role and channel provisioning, permission grants, member resolution and
// session message rendering.
package discord

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/protanki-tools/farmbot/internal/farm"
	"github.com/protanki-tools/farmbot/internal/models"
)

var (
	channelNameStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	channelNameSpaces   = regexp.MustCompile(`\s+`)
	mentionDecorations  = strings.NewReplacer("<", "", ">", "", "@", "", "!", "")
	numericID           = regexp.MustCompile(`^\d+$`)
	memberAccess  int64 = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory
)

// Adapter implements farm.Collaborator against a live Discord session.
type Adapter struct {
	session       *discordgo.Session
	categoryName  string
	organizerRole string
	log           *logrus.Logger
}

// NewAdapter wraps a Discord session.
func NewAdapter(session *discordgo.Session, categoryName, organizerRole string, log *logrus.Logger) *Adapter {
	return &Adapter{
		session:       session,
		categoryName:  categoryName,
		organizerRole: organizerRole,
		log:           log,
	}
}

// CreateRole creates the temporary per-farm role.
func (a *Adapter) CreateRole(ctx context.Context, guildID, title string) (string, error) {
	mentionable := false
	role, err := a.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        fmt.Sprintf("Farm - %s", title),
		Mentionable: &mentionable,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create role: %w", err)
	}
	return role.ID, nil
}

// DeleteRole removes a farm role.
func (a *Adapter) DeleteRole(ctx context.Context, guildID, roleID string) error {
	return a.session.GuildRoleDelete(guildID, roleID, discordgo.WithContext(ctx))
}

// CreateChannel creates the farm's private text channel under the configured
// category. The channel is hidden from everyone except the host, the farm
// role and the bot itself.
func (a *Adapter) CreateChannel(ctx context.Context, guildID, title, hostID, roleID string) (string, error) {
	category, err := a.findCategory(ctx, guildID)
	if err != nil {
		return "", err
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{
			// The @everyone role id equals the guild id.
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    hostID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberAccess,
		},
		{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: memberAccess,
		},
	}
	if a.session.State != nil && a.session.State.User != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    a.session.State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberAccess | discordgo.PermissionManageChannels,
		})
	}

	channel, err := a.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 channelName(title),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             category.ID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create channel: %w", err)
	}
	return channel.ID, nil
}

// DeleteChannel removes a farm's private channel.
func (a *Adapter) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := a.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

// GrantRole gives a member the farm role.
func (a *Adapter) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return a.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// RevokeRole takes the farm role away from a member.
func (a *Adapter) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	return a.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// ResolveMember maps a raw id, mention or (display) name onto a guild member.
func (a *Adapter) ResolveMember(ctx context.Context, guildID, nameOrMention string) (farm.MemberRef, bool) {
	clean := strings.TrimSpace(mentionDecorations.Replace(nameOrMention))
	if clean == "" {
		return farm.MemberRef{}, false
	}

	if numericID.MatchString(clean) {
		if m, err := a.session.GuildMember(guildID, clean, discordgo.WithContext(ctx)); err == nil {
			return farm.MemberRef{ID: m.User.ID, Name: m.User.Username}, true
		}
	}

	members, err := a.session.GuildMembersSearch(guildID, clean, 10, discordgo.WithContext(ctx))
	if err != nil {
		a.log.WithFields(logrus.Fields{"query": clean, "error": err}).Warn("member search failed")
		return farm.MemberRef{}, false
	}
	for _, m := range members {
		if strings.EqualFold(m.User.Username, clean) || strings.EqualFold(m.Nick, clean) {
			return farm.MemberRef{ID: m.User.ID, Name: m.User.Username}, true
		}
	}
	return farm.MemberRef{}, false
}

// PublishSession posts the initial session message and returns its id, which
// the controller then attaches to the farm for later renders.
func (a *Adapter) PublishSession(ctx context.Context, snap models.FarmSnapshot) (string, error) {
	msg, err := a.session.ChannelMessageSendComplex(snap.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("🆕 **%s** created by <@%s>.\nPrivate room: <#%s>",
			snap.Title, snap.HostID, snap.PrivateChannelID),
		Embeds:     []*discordgo.MessageEmbed{SessionEmbed(snap)},
		Components: SessionButtons(snap.ID, snap.Finalized),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("publish session: %w", err)
	}
	return msg.ID, nil
}

// Render edits the session message to match the snapshot. A farm whose
// message has not been published yet renders to nothing.
func (a *Adapter) Render(ctx context.Context, snap models.FarmSnapshot) error {
	if snap.MessageID == "" {
		return nil
	}
	embeds := []*discordgo.MessageEmbed{SessionEmbed(snap)}
	components := SessionButtons(snap.ID, snap.Finalized)
	_, err := a.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    snap.ChannelID,
		ID:         snap.MessageID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return err
}

// RenderEnded replaces the session message with the terminal embed and strips
// every control.
func (a *Adapter) RenderEnded(ctx context.Context, snap models.FarmSnapshot) error {
	if snap.MessageID == "" {
		return nil
	}
	embeds := []*discordgo.MessageEmbed{EndedEmbed(snap.Title)}
	components := []discordgo.MessageComponent{}
	_, err := a.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    snap.ChannelID,
		ID:         snap.MessageID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return err
}

// Announce posts a plain message into a channel.
func (a *Adapter) Announce(ctx context.Context, channelID, content string) error {
	_, err := a.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

// IsAuthorized reports whether the interacting member may manage the farm:
// the host, anyone with Manage Channels, or anyone carrying the organizer
// role (either spelling).
func (a *Adapter) IsAuthorized(i *discordgo.InteractionCreate, hostID string) bool {
	if i.Member == nil || i.Member.User == nil {
		return false
	}
	if i.Member.User.ID == hostID {
		return true
	}
	if i.Member.Permissions&discordgo.PermissionManageChannels != 0 {
		return true
	}

	roles, err := a.guildRoles(i.GuildID)
	if err != nil {
		a.log.WithFields(logrus.Fields{"guild_id": i.GuildID, "error": err}).Warn("role lookup failed")
		return false
	}
	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}
	for _, roleID := range i.Member.Roles {
		if matchesOrganizer(names[roleID], a.organizerRole) {
			return true
		}
	}
	return false
}

func (a *Adapter) guildRoles(guildID string) ([]*discordgo.Role, error) {
	if a.session.State != nil {
		if g, err := a.session.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
			return g.Roles, nil
		}
	}
	return a.session.GuildRoles(guildID)
}

// matchesOrganizer compares a role name against the configured organizer role
// tolerating the -iser/-izer spelling difference.
func matchesOrganizer(roleName, configured string) bool {
	normalize := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "organiser", "organizer")
	}
	return roleName != "" && normalize(roleName) == normalize(configured)
}

// channelName sanitizes a farm title into a valid text-channel name.
func channelName(title string) string {
	name := strings.ToLower(title)
	name = channelNameStrip.ReplaceAllString(name, "")
	name = channelNameSpaces.ReplaceAllString(strings.TrimSpace(name), "-")
	if name == "" {
		name = "farm"
	}
	return name
}

// findCategory locates the category channel the private farm rooms live
// under.
func (a *Adapter) findCategory(ctx context.Context, guildID string) (*discordgo.Channel, error) {
	channels, err := a.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	want := strings.ToLower(a.categoryName)
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && strings.Contains(strings.ToLower(ch.Name), want) {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("no category matching %q; create it first", a.categoryName)
}
