// internal/farm/controller_test.go
package farm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protanki-tools/farmbot/internal/models"
)

// fakeCollab records every platform call instead of talking to Discord.
type fakeCollab struct {
	mu sync.Mutex

	failRole    bool
	failChannel bool
	failGrant   bool

	members map[string]MemberRef // lowercased name -> ref

	roleSeq    int
	channelSeq int

	grants          []string
	revokes         []string
	deletedRoles    []string
	deletedChannels []string
	renders         []models.FarmSnapshot
	endedRenders    []models.FarmSnapshot
	announcements   []string
}

func newFakeCollab() *fakeCollab {
	return &fakeCollab{members: make(map[string]MemberRef)}
}

func (fc *fakeCollab) CreateRole(ctx context.Context, guildID, title string) (string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.failRole {
		return "", fmt.Errorf("missing Manage Roles")
	}
	fc.roleSeq++
	return fmt.Sprintf("role-%d", fc.roleSeq), nil
}

func (fc *fakeCollab) DeleteRole(ctx context.Context, guildID, roleID string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.deletedRoles = append(fc.deletedRoles, roleID)
	return nil
}

func (fc *fakeCollab) CreateChannel(ctx context.Context, guildID, title, hostID, roleID string) (string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.failChannel {
		return "", fmt.Errorf("missing Manage Channels")
	}
	fc.channelSeq++
	return fmt.Sprintf("chan-%d", fc.channelSeq), nil
}

func (fc *fakeCollab) DeleteChannel(ctx context.Context, channelID string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.deletedChannels = append(fc.deletedChannels, channelID)
	return nil
}

func (fc *fakeCollab) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.failGrant {
		return fmt.Errorf("member left the guild")
	}
	fc.grants = append(fc.grants, userID+":"+roleID)
	return nil
}

func (fc *fakeCollab) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.revokes = append(fc.revokes, userID+":"+roleID)
	return nil
}

func (fc *fakeCollab) ResolveMember(ctx context.Context, guildID, nameOrMention string) (MemberRef, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	ref, ok := fc.members[strings.ToLower(nameOrMention)]
	return ref, ok
}

func (fc *fakeCollab) Render(ctx context.Context, snap models.FarmSnapshot) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.renders = append(fc.renders, snap)
	return nil
}

func (fc *fakeCollab) RenderEnded(ctx context.Context, snap models.FarmSnapshot) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.endedRenders = append(fc.endedRenders, snap)
	return nil
}

func (fc *fakeCollab) Announce(ctx context.Context, channelID, content string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.announcements = append(fc.announcements, content)
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestController(policy Policy) (*Controller, *fakeCollab, *Store) {
	fc := newFakeCollab()
	store := NewStore(testLogger())
	ctrl := NewController(store, fc, policy, testLogger())
	return ctrl, fc, store
}

func defaultPolicy() Policy {
	return Policy{AutoFinalizeOnFull: true, AutoReopenUnderCapacity: true}
}

func mustCreate(t *testing.T, ctrl *Controller, maxPlayers int) *models.Farm {
	t.Helper()
	f, err := ctrl.Create(context.Background(), CreateParams{
		Title:      "Alpha",
		MaxPlayers: maxPlayers,
		Duration:   60,
		HostID:     "host",
		GuildID:    "guild",
		ChannelID:  "lobby",
	})
	require.NoError(t, err)
	return f
}

func TestCreateProvisionsResources(t *testing.T) {
	ctrl, _, store := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	require.NotEmpty(t, f.ID)
	assert.Equal(t, "role-1", f.RoleID)
	assert.Equal(t, "chan-1", f.PrivateChannelID)
	assert.False(t, f.Finalized)
	assert.Empty(t, f.Players)

	got, ok := store.Get(f.ID)
	require.True(t, ok)
	assert.Same(t, f, got)
}

func TestCreateRoleFailureAbortsCleanly(t *testing.T) {
	ctrl, fc, store := newTestController(defaultPolicy())
	fc.failRole = true

	_, err := ctrl.Create(context.Background(), CreateParams{Title: "Alpha", MaxPlayers: 4, HostID: "host"})
	require.ErrorIs(t, err, ErrResourceCreation)
	assert.Zero(t, store.Count())
}

func TestCreateChannelFailureCleansUpRole(t *testing.T) {
	ctrl, fc, store := newTestController(defaultPolicy())
	fc.failChannel = true

	_, err := ctrl.Create(context.Background(), CreateParams{Title: "Alpha", MaxPlayers: 4, HostID: "host"})
	require.ErrorIs(t, err, ErrResourceCreation)
	assert.Zero(t, store.Count())
	assert.Equal(t, []string{"role-1"}, fc.deletedRoles)
}

func TestJoinAutoFinalizesAtCapacity(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 2)

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)
	snap, err := ctrl.Snapshot(f.ID)
	require.NoError(t, err)
	assert.False(t, snap.Finalized)

	_, err = ctrl.Join(ctx, f.ID, "userB", "Bob", models.ModM3)
	require.NoError(t, err)
	snap, err = ctrl.Snapshot(f.ID)
	require.NoError(t, err)
	assert.True(t, snap.Finalized, "filling the last slot should lock the farm")
	assert.Len(t, snap.Players, 2)

	_, err = ctrl.Join(ctx, f.ID, "userC", "Carol", models.ModM3)
	assert.ErrorIs(t, err, ErrFull)

	assert.Contains(t, fc.grants, "userA:role-1")
	assert.Contains(t, fc.grants, "userB:role-1")
}

func TestJoinWithoutAutoFinalizeStaysOpen(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(Policy{AutoFinalizeOnFull: false, AutoReopenUnderCapacity: false})
	f := mustCreate(t, ctrl, 2)

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)
	_, err = ctrl.Join(ctx, f.ID, "userB", "Bob", models.ModM3)
	require.NoError(t, err)

	snap, err := ctrl.Snapshot(f.ID)
	require.NoError(t, err)
	assert.False(t, snap.Finalized)

	_, err = ctrl.Join(ctx, f.ID, "userC", "Carol", models.ModM3)
	assert.ErrorIs(t, err, ErrFull)
}

func TestJoinFinalizedRejected(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	require.NoError(t, ctrl.Finalize(ctx, f.ID, true))

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestJoinDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)
	_, err = ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM3)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestJoinUnknownFarm(t *testing.T) {
	ctrl, _, _ := newTestController(defaultPolicy())
	_, err := ctrl.Join(context.Background(), "nope", "userA", "Alice", models.ModM2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinSurvivesGrantFailure(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)
	fc.failGrant = true

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err, "a failed role grant must not reject the join")

	snap, err := ctrl.Snapshot(f.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 1)
}

func TestLeaveThenRejoin(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)
	require.NoError(t, ctrl.Leave(ctx, f.ID, "userA"))
	assert.Contains(t, fc.revokes, "userA:role-1")

	_, err = ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM3)
	require.NoError(t, err, "rejoining after a leave must not trip the member check")
}

func TestLeaveNotMember(t *testing.T) {
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)
	assert.ErrorIs(t, ctrl.Leave(context.Background(), f.ID, "ghost"), ErrNotMember)
}

func TestLeaveReopensUnderCapacity(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 2)

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)
	_, err = ctrl.Join(ctx, f.ID, "userB", "Bob", models.ModM3)
	require.NoError(t, err)

	require.NoError(t, ctrl.Leave(ctx, f.ID, "userB"))
	snap, err := ctrl.Snapshot(f.ID)
	require.NoError(t, err)
	assert.False(t, snap.Finalized, "dropping under capacity should reopen the farm")
}

func TestLeaveKeepsLockWithoutReopenPolicy(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(Policy{AutoFinalizeOnFull: true, AutoReopenUnderCapacity: false})
	f := mustCreate(t, ctrl, 2)

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)
	_, err = ctrl.Join(ctx, f.ID, "userB", "Bob", models.ModM3)
	require.NoError(t, err)

	require.NoError(t, ctrl.Leave(ctx, f.ID, "userB"))
	snap, err := ctrl.Snapshot(f.ID)
	require.NoError(t, err)
	assert.True(t, snap.Finalized)
}

func TestAddManualUnlinkedStub(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	p, err := ctrl.AddManual(ctx, f.ID, "Bob")
	require.NoError(t, err)
	assert.Empty(t, p.ID)
	assert.Equal(t, "Bob", p.Name)

	_, err = ctrl.AddManual(ctx, f.ID, "bob")
	assert.ErrorIs(t, err, ErrDuplicate, "manual names deduplicate case-insensitively")
}

func TestAddManualResolvedMember(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)
	fc.members["dave"] = MemberRef{ID: "userD", Name: "Dave"}

	p, err := ctrl.AddManual(ctx, f.ID, "Dave")
	require.NoError(t, err)
	assert.Equal(t, "userD", p.ID)
	assert.Contains(t, fc.grants, "userD:role-1")

	_, err = ctrl.AddManual(ctx, f.ID, "dave")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAddManualMayOverbook(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 1)

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)

	// Farm is full and auto-finalized, the host can still add players.
	_, err = ctrl.AddManual(ctx, f.ID, "Bob")
	require.NoError(t, err)

	snap, err := ctrl.Snapshot(f.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2)
	assert.True(t, snap.Finalized)
}

func TestRemoveManualByName(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 2)
	fc.members["dave"] = MemberRef{ID: "userD", Name: "Dave"}

	_, err := ctrl.AddManual(ctx, f.ID, "Dave")
	require.NoError(t, err)
	_, err = ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)

	p, err := ctrl.RemoveManual(ctx, f.ID, "DAVE")
	require.NoError(t, err)
	assert.Equal(t, "userD", p.ID)
	assert.Contains(t, fc.revokes, "userD:role-1")

	snap, err := ctrl.Snapshot(f.ID)
	require.NoError(t, err)
	assert.False(t, snap.Finalized, "removal under capacity should reopen the farm")
	assert.Len(t, snap.Players, 1)
}

func TestRemoveManualUnknownPlayer(t *testing.T) {
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)
	_, err := ctrl.RemoveManual(context.Background(), f.ID, "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetMod(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	_, err := ctrl.AddManual(ctx, f.ID, "Bob")
	require.NoError(t, err)

	require.NoError(t, ctrl.SetMod(ctx, f.ID, "bob", models.ModM2))
	snap, err := ctrl.Snapshot(f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModM2, snap.Players[0].Mod)

	assert.ErrorIs(t, ctrl.SetMod(ctx, f.ID, "ghost", models.ModM3), ErrNotFound)
}

func TestFinalizeRequiresAuthorization(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	assert.ErrorIs(t, ctrl.Finalize(ctx, f.ID, false), ErrUnauthorized)
	assert.ErrorIs(t, ctrl.Unfinalize(ctx, f.ID, false), ErrUnauthorized)
	assert.ErrorIs(t, ctrl.End(ctx, f.ID, false), ErrUnauthorized)
}

func TestFinalizeToggle(t *testing.T) {
	ctx := context.Background()
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	require.NoError(t, ctrl.Finalize(ctx, f.ID, true))
	snap, _ := ctrl.Snapshot(f.ID)
	assert.True(t, snap.Finalized)

	require.NoError(t, ctrl.Unfinalize(ctx, f.ID, true))
	snap, _ = ctrl.Snapshot(f.ID)
	assert.False(t, snap.Finalized)
}

func TestEndTearsDownEverything(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, store := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)
	_, err = ctrl.AddManual(ctx, f.ID, "Bob") // unlinked, nothing to revoke
	require.NoError(t, err)

	require.NoError(t, ctrl.End(ctx, f.ID, true))

	assert.Zero(t, store.Count())
	assert.Equal(t, []string{"userA:role-1"}, fc.revokes)
	assert.Equal(t, []string{"chan-1"}, fc.deletedChannels)
	assert.Equal(t, []string{"role-1"}, fc.deletedRoles)
	require.Len(t, fc.endedRenders, 1)

	// Every subsequent operation on the id must miss.
	_, err = ctrl.Join(ctx, f.ID, "userB", "Bob", models.ModM3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, ctrl.Leave(ctx, f.ID, "userA"), ErrNotFound)
	assert.ErrorIs(t, ctrl.Finalize(ctx, f.ID, true), ErrNotFound)
	_, err = ctrl.Snapshot(f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPingAllBatches(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 30)

	var slept []time.Duration
	ctrl.sleep = func(d time.Duration) { slept = append(slept, d) }

	for i := 0; i < 25; i++ {
		_, err := ctrl.AddManual(ctx, f.ID, fmt.Sprintf("player%02d", i))
		require.NoError(t, err)
	}

	require.NoError(t, ctrl.PingAll(ctx, f.ID, true))

	require.Len(t, fc.announcements, 3, "25 players should ping in batches of 10")
	assert.Equal(t, []time.Duration{pingBatchDelay, pingBatchDelay}, slept)
	assert.Contains(t, fc.announcements[0], "player00")
	assert.Contains(t, fc.announcements[2], "player24")
}

func TestPingAllEmptyRoster(t *testing.T) {
	ctrl, _, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)
	assert.ErrorIs(t, ctrl.PingAll(context.Background(), f.ID, true), ErrNotMember)
}

func TestGoldListAnnouncesShuffledRoster(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := ctrl.AddManual(ctx, f.ID, name)
		require.NoError(t, err)
	}

	require.NoError(t, ctrl.GoldList(ctx, f.ID, true))
	require.Len(t, fc.announcements, 1)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		assert.Contains(t, fc.announcements[0], name)
	}
}

func TestSplitTeamsAnnouncesBothTeams(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 6)

	for i, name := range []string{"Alice", "Bob", "Carol", "Dave"} {
		_, err := ctrl.AddManual(ctx, f.ID, name)
		require.NoError(t, err)
		mod := models.ModM2
		if i%2 == 1 {
			mod = models.ModM3
		}
		require.NoError(t, ctrl.SetMod(ctx, f.ID, name, mod))
	}

	require.NoError(t, ctrl.SplitTeams(ctx, f.ID, true))
	require.Len(t, fc.announcements, 1)
	assert.Contains(t, fc.announcements[0], "Team 1")
	assert.Contains(t, fc.announcements[0], "Team 2")
}

func TestRenderCarriesAttachedMessage(t *testing.T) {
	ctx := context.Background()
	ctrl, fc, _ := newTestController(defaultPolicy())
	f := mustCreate(t, ctrl, 4)

	require.NoError(t, ctrl.AttachMessage(f.ID, "msg-1"))
	_, err := ctrl.Join(ctx, f.ID, "userA", "Alice", models.ModM2)
	require.NoError(t, err)

	require.NotEmpty(t, fc.renders)
	assert.Equal(t, "msg-1", fc.renders[len(fc.renders)-1].MessageID)
}
