package extension

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/lifecycle"
	"github.com/flifloo/administrator/reconcile"
	"github.com/flifloo/administrator/registry"
	"github.com/flifloo/administrator/store"
)

const (
	ownerID   = "1"
	managerID = "2"
	guildID   = "42"

	manageGuild = int64(1 << 5)
)

type dummyExtension struct {
	fail bool
}

func (d *dummyExtension) Setup(ctx context.Context, scope *lifecycle.Scope) error {
	if d.fail {
		return errors.New("dummy is broken")
	}
	scope.Group("dummy")
	return nil
}

func (d *dummyExtension) Teardown(ctx context.Context) error { return nil }

type testBot struct {
	root       *administrator.Container
	ctl        *lifecycle.Controller
	reg        *registry.Registry
	reconciler *reconcile.Reconciler
	failDummy  bool
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()

	db, err := store.Open(context.Background(), store.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg, err := registry.New(context.Background(), db)
	require.NoError(t, err)

	b := &testBot{root: &administrator.Container{RunInDM: true}, reg: reg}
	b.ctl = lifecycle.NewController(b.root, nil)
	b.reconciler = reconcile.New(reg, b.ctl)

	b.ctl.Register(Name, func() lifecycle.Extension {
		return &Extension{Lifecycle: b.ctl, States: reg, Reconciler: b.reconciler, Owners: administrator.NewOwnerSet(ownerID)}
	})
	b.ctl.Register("dummy", func() lifecycle.Extension { return &dummyExtension{fail: b.failDummy} })

	require.NoError(t, b.ctl.Load(context.Background(), Name))
	require.NoError(t, b.ctl.Load(context.Background(), "dummy"))
	require.NoError(t, b.reconciler.OnReady(context.Background(), []string{guildID}).Err())
	return b
}

func (b *testBot) run(author string, perms int64, input string) (interface{}, error) {
	return b.root.Run(&administrator.Data{
		MsgStrippedPrefix: input,
		Source:            administrator.PrefixSource,
		AuthorID:          author,
		GuildID:           guildID,
		Permissions:       perms,
	})
}

func TestToggle(t *testing.T) {
	b := newTestBot(t)

	resp, err := b.run(managerID, manageGuild, "extension disable dummy")
	require.NoError(t, err)
	assert.Equal(t, "Extension `dummy` disabled", resp)

	resp, err = b.run(managerID, manageGuild, "extension disable dummy")
	require.NoError(t, err)
	assert.Equal(t, "Extension `dummy` already disabled", resp)

	enabled, err := b.reg.IsEnabled(context.Background(), "dummy", guildID)
	require.NoError(t, err)
	assert.False(t, enabled)

	resp, err = b.run(managerID, manageGuild, "extension enable dummy")
	require.NoError(t, err)
	assert.Equal(t, "Extension `dummy` enabled", resp)

	resp, err = b.run(managerID, manageGuild, "extension list")
	require.NoError(t, err)
	embed := resp.(*discordgo.MessageEmbed)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "dummy", embed.Fields[0].Name)
	assert.Equal(t, "Enabled", embed.Fields[0].Value)
}

func TestToggleRejections(t *testing.T) {
	b := newTestBot(t)

	_, err := b.run(managerID, 0, "extension disable dummy")
	assert.IsType(t, &administrator.MissingPermissionsError{}, err)

	_, err = b.root.Run(&administrator.Data{MsgStrippedPrefix: "extension disable dummy", Source: administrator.DMSource, AuthorID: managerID})
	assert.IsType(t, &administrator.NoPrivateContextError{}, err)

	// The extension commands can not be toggled
	_, err = b.run(managerID, manageGuild, "extension disable extension")
	assert.IsType(t, &registry.NotFoundError{}, err)
	assert.Equal(t, administrator.ErrorClassRejected, administrator.ClassifyError(err))

	_, err = b.run(managerID, manageGuild, "extension disable")
	assert.Equal(t, administrator.ErrorClassBadArgument, administrator.ClassifyError(err))
}

func TestOwnerCommands(t *testing.T) {
	b := newTestBot(t)

	_, err := b.run(managerID, manageGuild, "extension unload dummy")
	assert.IsType(t, &administrator.NotOwnerError{}, err)
	assert.True(t, b.ctl.IsLoaded("dummy"))

	resp, err := b.run(ownerID, 0, "extension unload dummy")
	require.NoError(t, err)
	assert.Equal(t, administrator.ReactionSuccess, resp)
	assert.False(t, b.ctl.IsLoaded("dummy"))

	resp, err = b.run(ownerID, 0, "extension load dummy")
	require.NoError(t, err)
	assert.Equal(t, administrator.ReactionSuccess, resp)

	resp, err = b.run(ownerID, 0, "extension loaded")
	require.NoError(t, err)
	embed := resp.(*discordgo.MessageEmbed)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "dummy", embed.Fields[0].Name)
	assert.Equal(t, Name, embed.Fields[1].Name)
	assert.Equal(t, "Manage bot's extensions", embed.Fields[1].Value)
}

func TestLoadReconcilesGuilds(t *testing.T) {
	b := newTestBot(t)
	b.ctl.Register("late", func() lifecycle.Extension { return &dummyExtension{} })

	_, err := b.run(ownerID, 0, "extension load late")
	require.NoError(t, err)

	states, err := b.reg.ListEnabledState(context.Background(), guildID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"dummy": true, "late": true}, states)
}

func TestLifecycleFailureIsReported(t *testing.T) {
	b := newTestBot(t)

	resp, err := b.run(ownerID, 0, "extension load nope")
	require.NoError(t, err, "Lifecycle failures are replies")
	multi := resp.(administrator.MultiResponse)
	require.Len(t, multi, 2)
	assert.Equal(t, administrator.ReactionWarning, multi[0])
	assert.Contains(t, multi[1], "load nope: no such extension")

	b.failDummy = true
	resp, err = b.run(ownerID, 0, "extension reload dummy")
	require.NoError(t, err)
	multi = resp.(administrator.MultiResponse)
	assert.Contains(t, multi[1], "reload dummy (load phase): dummy is broken")
	assert.False(t, b.ctl.IsLoaded("dummy"))
}

func TestGroupHelp(t *testing.T) {
	b := newTestBot(t)

	resp, err := b.run(managerID, 0, "extension")
	require.NoError(t, err)
	embeds := resp.([]*discordgo.MessageEmbed)
	require.Len(t, embeds, 1)
	assert.Contains(t, embeds[0].Description, "extension enable <Name:Text>")
}
