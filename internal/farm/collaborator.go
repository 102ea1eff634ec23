// internal/farm/collaborator.go
package farm

import (
	"context"

	"github.com/protanki-tools/farmbot/internal/models"
)

// MemberRef is a resolved platform member.
type MemberRef struct {
	ID   string
	Name string
}

// Collaborator is the chat-platform capability set the controller depends on.
// Role grants, revocations and renders are best-effort from the controller's
// point of view: the in-memory farm state stays authoritative even when the
// platform call fails. Resource creation during Create is the one exception,
// where a failure aborts the whole operation.
type Collaborator interface {
	CreateRole(ctx context.Context, guildID, title string) (string, error)
	DeleteRole(ctx context.Context, guildID, roleID string) error

	CreateChannel(ctx context.Context, guildID, title, hostID, roleID string) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error

	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	RevokeRole(ctx context.Context, guildID, userID, roleID string) error

	// ResolveMember maps a name or mention onto a real member, if any.
	ResolveMember(ctx context.Context, guildID, nameOrMention string) (MemberRef, bool)

	// Render re-draws the farm's public session message.
	Render(ctx context.Context, snap models.FarmSnapshot) error
	// RenderEnded replaces the session message with a terminal "ended" view.
	RenderEnded(ctx context.Context, snap models.FarmSnapshot) error

	// Announce posts a plain message into a channel.
	Announce(ctx context.Context, channelID, content string) error
}
