// internal/farm/controller.go
package farm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/protanki-tools/farmbot/internal/models"
	"github.com/protanki-tools/farmbot/internal/team"
)

const (
	pingBatchSize  = 10
	pingBatchDelay = 1500 * time.Millisecond
)

// Policy captures the two lifecycle behaviors that differ between known
// deployments of this bot. Both default to on.
type Policy struct {
	// AutoFinalizeOnFull locks the farm when a join fills the last slot.
	AutoFinalizeOnFull bool
	// AutoReopenUnderCapacity unlocks a finalized farm when a leave or
	// removal drops the roster below capacity again.
	AutoReopenUnderCapacity bool
}

// CreateParams carries everything Create needs from the triggering event.
type CreateParams struct {
	Title      string
	MaxPlayers int
	Duration   int
	HostID     string
	GuildID    string
	ChannelID  string
}

// Controller validates and applies farm lifecycle transitions against the
// Store. Every operation locks the target farm across its full check+mutate
// sequence, then fires collaborator side effects on a snapshot after unlock.
type Controller struct {
	store    *Store
	platform Collaborator
	policy   Policy
	log      *logrus.Logger

	// sleep is swapped out in tests to avoid real ping-batch delays.
	sleep func(time.Duration)
}

// NewController wires a Controller to its store and platform collaborator.
func NewController(store *Store, platform Collaborator, policy Policy, log *logrus.Logger) *Controller {
	return &Controller{
		store:    store,
		platform: platform,
		policy:   policy,
		log:      log,
		sleep:    time.Sleep,
	}
}

// Create allocates a farm with an empty roster after provisioning its
// platform role and private channel. If either resource cannot be created the
// whole operation fails with ErrResourceCreation and nothing is registered;
// a role that was already created is cleaned up best-effort.
func (c *Controller) Create(ctx context.Context, p CreateParams) (*models.Farm, error) {
	roleID, err := c.platform.CreateRole(ctx, p.GuildID, p.Title)
	if err != nil {
		return nil, fmt.Errorf("%w: role: %v", ErrResourceCreation, err)
	}

	channelID, err := c.platform.CreateChannel(ctx, p.GuildID, p.Title, p.HostID, roleID)
	if err != nil {
		if derr := c.platform.DeleteRole(ctx, p.GuildID, roleID); derr != nil {
			c.log.WithFields(logrus.Fields{"role_id": roleID, "error": derr}).Warn("create: role cleanup failed")
		}
		return nil, fmt.Errorf("%w: channel: %v", ErrResourceCreation, err)
	}

	f := &models.Farm{
		ID:               uuid.NewString(),
		Title:            p.Title,
		MaxPlayers:       p.MaxPlayers,
		Duration:         p.Duration,
		HostID:           p.HostID,
		GuildID:          p.GuildID,
		RoleID:           roleID,
		PrivateChannelID: channelID,
		ChannelID:        p.ChannelID,
	}
	c.store.Add(f)

	c.log.WithFields(logrus.Fields{
		"farm_id": f.ID,
		"title":   f.Title,
		"host_id": f.HostID,
		"max":     f.MaxPlayers,
	}).Info("farm created")
	return f, nil
}

// AttachMessage records the platform message that renders the farm. Called
// once after the session message is first published.
func (c *Controller) AttachMessage(farmID, messageID string) error {
	f, ok := c.store.Get(farmID)
	if !ok {
		return ErrNotFound
	}
	f.Mu.Lock()
	f.MessageID = messageID
	f.Mu.Unlock()
	return nil
}

// Snapshot returns a copy of the farm's current state.
func (c *Controller) Snapshot(farmID string) (models.FarmSnapshot, error) {
	f, ok := c.store.Get(farmID)
	if !ok {
		return models.FarmSnapshot{}, ErrNotFound
	}
	f.Mu.Lock()
	defer f.Mu.Unlock()
	return f.SnapshotUnsafe(), nil
}

// checkJoinUnsafe applies the join admission rules. Assumes the farm lock is
// held. Capacity is checked before the finalized flag so that a join against
// a full farm reports Full even after an auto-finalize.
func checkJoinUnsafe(f *models.Farm, userID string) error {
	if _, ok := f.PlayerByIDUnsafe(userID); ok {
		return ErrAlreadyMember
	}
	if f.FullUnsafe() {
		return ErrFull
	}
	if f.Finalized {
		return ErrFinalized
	}
	return nil
}

// CheckJoin reports whether userID would currently be admitted, without
// mutating anything. Used to fail fast before prompting for a mod choice.
func (c *Controller) CheckJoin(farmID, userID string) error {
	f, ok := c.store.Get(farmID)
	if !ok {
		return ErrNotFound
	}
	f.Mu.Lock()
	defer f.Mu.Unlock()
	return checkJoinUnsafe(f, userID)
}

// Join appends the user to the roster, then grants the farm role and
// re-renders best-effort. Filling the last slot locks the farm when the
// auto-finalize policy is on.
func (c *Controller) Join(ctx context.Context, farmID, userID, displayName string, mod models.Mod) (models.Player, error) {
	f, ok := c.store.Get(farmID)
	if !ok {
		return models.Player{}, ErrNotFound
	}

	f.Mu.Lock()
	if err := checkJoinUnsafe(f, userID); err != nil {
		f.Mu.Unlock()
		return models.Player{}, err
	}
	player := models.Player{ID: userID, Name: displayName, Mod: mod}
	f.Players = append(f.Players, player)
	if c.policy.AutoFinalizeOnFull && f.FullUnsafe() {
		f.Finalized = true
	}
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"farm_id": farmID,
		"user_id": userID,
		"mod":     string(mod),
		"size":    len(snap.Players),
	}).Info("player joined")

	if err := c.platform.GrantRole(ctx, snap.GuildID, userID, snap.RoleID); err != nil {
		c.log.WithFields(logrus.Fields{"farm_id": farmID, "user_id": userID, "error": err}).Warn("join: role grant failed")
	}
	c.render(ctx, snap)
	return player, nil
}

// Leave removes the user from the roster, revokes the farm role best-effort
// and re-renders. Dropping below capacity reopens a finalized farm when the
// auto-reopen policy is on.
func (c *Controller) Leave(ctx context.Context, farmID, userID string) error {
	f, ok := c.store.Get(farmID)
	if !ok {
		return ErrNotFound
	}

	f.Mu.Lock()
	i, ok := f.PlayerByIDUnsafe(userID)
	if !ok {
		f.Mu.Unlock()
		return ErrNotMember
	}
	f.Players = append(f.Players[:i], f.Players[i+1:]...)
	c.reopenIfUnderCapacityUnsafe(f)
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	c.log.WithFields(logrus.Fields{"farm_id": farmID, "user_id": userID, "size": len(snap.Players)}).Info("player left")

	if err := c.platform.RevokeRole(ctx, snap.GuildID, userID, snap.RoleID); err != nil {
		c.log.WithFields(logrus.Fields{"farm_id": farmID, "user_id": userID, "error": err}).Warn("leave: role revoke failed")
	}
	c.render(ctx, snap)
	return nil
}

// AddManual adds a player by name or mention on the host's behalf. A name
// that resolves to a real member yields a linked entry and a role grant; an
// unresolvable name yields an unlinked stub deduplicated by name only. There
// is no capacity check: hosts may overbook deliberately.
func (c *Controller) AddManual(ctx context.Context, farmID, nameOrMention string) (models.Player, error) {
	f, ok := c.store.Get(farmID)
	if !ok {
		return models.Player{}, ErrNotFound
	}

	ref, resolved := c.platform.ResolveMember(ctx, f.GuildID, nameOrMention)

	f.Mu.Lock()
	var player models.Player
	if resolved {
		if _, ok := f.PlayerByIDUnsafe(ref.ID); ok {
			f.Mu.Unlock()
			return models.Player{}, ErrDuplicate
		}
		if f.HasNameUnsafe(ref.Name) {
			f.Mu.Unlock()
			return models.Player{}, ErrDuplicate
		}
		player = models.Player{ID: ref.ID, Name: ref.Name}
	} else {
		if f.HasNameUnsafe(nameOrMention) {
			f.Mu.Unlock()
			return models.Player{}, ErrDuplicate
		}
		player = models.Player{Name: nameOrMention}
	}
	f.Players = append(f.Players, player)
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"farm_id": farmID,
		"name":    player.Name,
		"linked":  player.Linked(),
		"size":    len(snap.Players),
	}).Info("player added manually")

	if player.Linked() {
		if err := c.platform.GrantRole(ctx, snap.GuildID, player.ID, snap.RoleID); err != nil {
			c.log.WithFields(logrus.Fields{"farm_id": farmID, "user_id": player.ID, "error": err}).Warn("add: role grant failed")
		}
	}
	c.render(ctx, snap)
	return player, nil
}

// RemoveManual removes a player by id or exact (case-insensitive) name on the
// host's behalf, with the same reopen behavior as Leave.
func (c *Controller) RemoveManual(ctx context.Context, farmID, selector string) (models.Player, error) {
	f, ok := c.store.Get(farmID)
	if !ok {
		return models.Player{}, ErrNotFound
	}

	f.Mu.Lock()
	i, ok := f.PlayerByKeyUnsafe(selector)
	if !ok {
		f.Mu.Unlock()
		return models.Player{}, ErrNotFound
	}
	player := f.Players[i]
	f.Players = append(f.Players[:i], f.Players[i+1:]...)
	c.reopenIfUnderCapacityUnsafe(f)
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	c.log.WithFields(logrus.Fields{"farm_id": farmID, "name": player.Name, "size": len(snap.Players)}).Info("player removed manually")

	if player.Linked() {
		if err := c.platform.RevokeRole(ctx, snap.GuildID, player.ID, snap.RoleID); err != nil {
			c.log.WithFields(logrus.Fields{"farm_id": farmID, "user_id": player.ID, "error": err}).Warn("remove: role revoke failed")
		}
	}
	c.render(ctx, snap)
	return player, nil
}

// SetMod sets or overwrites the mod tag on an existing player, identified by
// user id or name.
func (c *Controller) SetMod(ctx context.Context, farmID, playerKey string, mod models.Mod) error {
	f, ok := c.store.Get(farmID)
	if !ok {
		return ErrNotFound
	}

	f.Mu.Lock()
	i, ok := f.PlayerByKeyUnsafe(playerKey)
	if !ok {
		f.Mu.Unlock()
		return ErrNotFound
	}
	f.Players[i].Mod = mod
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	c.render(ctx, snap)
	return nil
}

// Finalize locks the farm against new joins. The authorization decision is
// made by the caller per incoming event and passed in pre-verified.
func (c *Controller) Finalize(ctx context.Context, farmID string, authorized bool) error {
	return c.setFinalized(ctx, farmID, authorized, true)
}

// Unfinalize reopens a locked farm.
func (c *Controller) Unfinalize(ctx context.Context, farmID string, authorized bool) error {
	return c.setFinalized(ctx, farmID, authorized, false)
}

func (c *Controller) setFinalized(ctx context.Context, farmID string, authorized, finalized bool) error {
	f, ok := c.store.Get(farmID)
	if !ok {
		return ErrNotFound
	}
	if !authorized {
		return ErrUnauthorized
	}

	f.Mu.Lock()
	f.Finalized = finalized
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	c.log.WithFields(logrus.Fields{"farm_id": farmID, "finalized": finalized}).Info("farm finalized state changed")
	c.render(ctx, snap)
	return nil
}

// End tears the farm down: every player's role is revoked best-effort, the
// private channel and role are deleted best-effort, the farm leaves the store
// and the session message is replaced with a terminal view. Irreversible.
func (c *Controller) End(ctx context.Context, farmID string, authorized bool) error {
	f, ok := c.store.Get(farmID)
	if !ok {
		return ErrNotFound
	}
	if !authorized {
		return ErrUnauthorized
	}

	f.Mu.Lock()
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	for _, p := range snap.Players {
		if !p.Linked() {
			continue
		}
		if err := c.platform.RevokeRole(ctx, snap.GuildID, p.ID, snap.RoleID); err != nil {
			c.log.WithFields(logrus.Fields{"farm_id": farmID, "user_id": p.ID, "error": err}).Warn("end: role revoke failed")
		}
	}
	if err := c.platform.DeleteChannel(ctx, snap.PrivateChannelID); err != nil {
		c.log.WithFields(logrus.Fields{"farm_id": farmID, "error": err}).Warn("end: channel delete failed")
	}
	if err := c.platform.DeleteRole(ctx, snap.GuildID, snap.RoleID); err != nil {
		c.log.WithFields(logrus.Fields{"farm_id": farmID, "error": err}).Warn("end: role delete failed")
	}

	c.store.Delete(farmID)
	c.log.WithFields(logrus.Fields{"farm_id": farmID, "title": snap.Title}).Info("farm ended")

	if err := c.platform.RenderEnded(ctx, snap); err != nil {
		c.log.WithFields(logrus.Fields{"farm_id": farmID, "error": err}).Warn("end: final render failed")
	}
	return nil
}

// PingAll mentions every player in the farm's private channel, in batches
// with a pause between them as a rate-limit courtesy. Unlinked players are
// named in plain text.
func (c *Controller) PingAll(ctx context.Context, farmID string, authorized bool) error {
	f, ok := c.store.Get(farmID)
	if !ok {
		return ErrNotFound
	}
	if !authorized {
		return ErrUnauthorized
	}

	f.Mu.Lock()
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	mentions := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		if p.Linked() {
			mentions = append(mentions, fmt.Sprintf("<@%s>", p.ID))
		} else {
			mentions = append(mentions, p.Name)
		}
	}
	if len(mentions) == 0 {
		return ErrNotMember
	}

	for i := 0; i < len(mentions); i += pingBatchSize {
		end := i + pingBatchSize
		if end > len(mentions) {
			end = len(mentions)
		}
		content := fmt.Sprintf("📣 **Ping:** %s\n**Farm:** %s", strings.Join(mentions[i:end], " "), snap.Title)
		if err := c.platform.Announce(ctx, snap.PrivateChannelID, content); err != nil {
			return fmt.Errorf("ping announce: %w", err)
		}
		if end < len(mentions) {
			c.sleep(pingBatchDelay)
		}
	}
	return nil
}

// GoldList posts a freshly shuffled roster ordering into the private channel.
func (c *Controller) GoldList(ctx context.Context, farmID string, authorized bool) error {
	f, ok := c.store.Get(farmID)
	if !ok {
		return ErrNotFound
	}
	if !authorized {
		return ErrUnauthorized
	}

	f.Mu.Lock()
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	if len(snap.Players) == 0 {
		return ErrNotMember
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔀 **Gold list for %s:**\n", snap.Title)
	for i, p := range team.Shuffle(snap.Players) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, playerLine(p))
	}
	if err := c.platform.Announce(ctx, snap.PrivateChannelID, b.String()); err != nil {
		return fmt.Errorf("gold list announce: %w", err)
	}
	return nil
}

// SplitTeams computes a balanced two-team split and posts it into the private
// channel. The farm roster itself is left untouched.
func (c *Controller) SplitTeams(ctx context.Context, farmID string, authorized bool) error {
	f, ok := c.store.Get(farmID)
	if !ok {
		return ErrNotFound
	}
	if !authorized {
		return ErrUnauthorized
	}

	f.Mu.Lock()
	snap := f.SnapshotUnsafe()
	f.Mu.Unlock()

	if len(snap.Players) == 0 {
		return ErrNotMember
	}

	teamA, teamB := team.Split(snap.Players)
	var b strings.Builder
	fmt.Fprintf(&b, "⚖️ **Teams for %s:**\n\n**Team 1**\n", snap.Title)
	for i, p := range teamA {
		fmt.Fprintf(&b, "%d. %s\n", i+1, playerLine(p))
	}
	b.WriteString("\n**Team 2**\n")
	for i, p := range teamB {
		fmt.Fprintf(&b, "%d. %s\n", i+1, playerLine(p))
	}
	if err := c.platform.Announce(ctx, snap.PrivateChannelID, b.String()); err != nil {
		return fmt.Errorf("split announce: %w", err)
	}
	return nil
}

// reopenIfUnderCapacityUnsafe clears the finalized flag after a removal left
// the roster under capacity, when the policy allows. Assumes the farm lock is
// held.
func (c *Controller) reopenIfUnderCapacityUnsafe(f *models.Farm) {
	if c.policy.AutoReopenUnderCapacity && f.Finalized && !f.FullUnsafe() {
		f.Finalized = false
		c.log.WithField("farm_id", f.ID).Info("farm reopened under capacity")
	}
}

func (c *Controller) render(ctx context.Context, snap models.FarmSnapshot) {
	if err := c.platform.Render(ctx, snap); err != nil {
		c.log.WithFields(logrus.Fields{"farm_id": snap.ID, "error": err}).Warn("render failed")
	}
}

func playerLine(p models.Player) string {
	if p.Mod != models.ModNone {
		return fmt.Sprintf("%s — %s", p.Name, p.Mod)
	}
	return p.Name
}
