package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flifloo/administrator"
	"github.com/flifloo/administrator/lifecycle"
	"github.com/flifloo/administrator/store"
)

const (
	testUser    = "80351110224678912"
	testChannel = "381870553235193857"
)

type delivery struct {
	channel string
	msg     *discordgo.MessageSend
}

type fakeMessenger struct {
	mu   sync.Mutex
	fail bool
	sent []delivery
}

func (f *fakeMessenger) ChannelMessage(channelID string, msg *discordgo.MessageSend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("missing access")
	}
	f.sent = append(f.sent, delivery{channelID, msg})
	return nil
}

func (f *fakeMessenger) DirectMessage(userID string, msg *discordgo.MessageSend) error { return nil }
func (f *fakeMessenger) SystemChannelMessage(guildID string, msg *discordgo.MessageSend) error {
	return nil
}

func (f *fakeMessenger) deliveries() []delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivery(nil), f.sent...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	root      *administrator.Container
	ctl       *lifecycle.Controller
	ext       *Extension
	messenger *fakeMessenger
	clock     *clock
}

func setup(t *testing.T, interval time.Duration) *fixture {
	t.Helper()

	db, err := store.Open(context.Background(), store.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		messenger: &fakeMessenger{},
		clock:     &clock{now: time.Date(2021, 3, 14, 15, 9, 0, 0, time.UTC)},
	}
	f.ext = &Extension{
		DB:        db,
		Messenger: func(*discordgo.Session) administrator.Messenger { return f.messenger },
		Interval:  interval,
		Now:       f.clock.Now,
	}

	f.root = &administrator.Container{RunInDM: true}
	f.ctl = lifecycle.NewController(f.root, nil)
	f.ctl.Register(Name, func() lifecycle.Extension { return f.ext })
	require.NoError(t, f.ctl.Load(context.Background(), Name))
	t.Cleanup(func() { f.ctl.UnloadAll(context.Background()) })
	return f
}

func (f *fixture) run(author, input string) (interface{}, error) {
	return f.root.Run(&administrator.Data{
		MsgStrippedPrefix: input,
		Source:            administrator.DMSource,
		AuthorID:          author,
		ChannelID:         testChannel,
	})
}

func TestAddAndList(t *testing.T) {
	f := setup(t, time.Hour)

	resp, err := f.run(testUser, "reminder add 1d2h take out the trash")
	require.NoError(t, err)
	assert.Equal(t, "Remind you in 1d 2h 0m 0s !", resp)

	resp, err = f.run(testUser, "remind list")
	require.NoError(t, err)
	embed := resp.(*discordgo.MessageEmbed)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "N°1 | 15/03/2021 17:09", embed.Fields[0].Name)
	assert.Equal(t, "take out the trash", embed.Fields[0].Value)

	resp, err = f.run("3", "reminder list")
	require.NoError(t, err)
	assert.Empty(t, resp.(*discordgo.MessageEmbed).Fields)
}

func TestAddInvalidDuration(t *testing.T) {
	f := setup(t, time.Hour)

	_, err := f.run(testUser, "reminder add soon hello")
	assert.IsType(t, &administrator.InvalidDuration{}, err)
}

func TestRemove(t *testing.T) {
	f := setup(t, time.Hour)
	_, err := f.run(testUser, "reminder add 1h hello")
	require.NoError(t, err)

	_, err = f.run("3", "reminder remove 1")
	assert.Equal(t, &UnknownReminderError{ID: 1}, err)
	assert.Equal(t, administrator.ErrorClassRejected, administrator.ClassifyError(err))

	resp, err := f.run(testUser, "reminder remove 1")
	require.NoError(t, err)
	assert.Equal(t, administrator.ReactionSuccess, resp)

	_, err = f.run(testUser, "reminder remove 1")
	assert.Error(t, err)
}

func TestDeliverDue(t *testing.T) {
	f := setup(t, time.Hour)
	_, err := f.run(testUser, "reminder add 10m first")
	require.NoError(t, err)
	_, err = f.run(testUser, "reminder add 1h second")
	require.NoError(t, err)

	assert.Zero(t, f.ext.deliverDue(context.Background()))

	f.clock.Advance(10 * time.Minute)
	assert.Equal(t, 1, f.ext.deliverDue(context.Background()))

	sent := f.messenger.deliveries()
	require.Len(t, sent, 1)
	assert.Equal(t, testChannel, sent[0].channel)
	assert.Equal(t, "<@"+testUser+">", sent[0].msg.Content)
	assert.Equal(t, "first", sent[0].msg.Embeds[0].Fields[0].Value)

	// Delivered reminders are forgotten
	assert.Zero(t, f.ext.deliverDue(context.Background()))

	left, err := f.ext.store.ListUser(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "second", left[0].Message)
}

func TestFailedDeliveryIsDropped(t *testing.T) {
	f := setup(t, time.Hour)
	_, err := f.run(testUser, "reminder add 1s hello")
	require.NoError(t, err)

	f.messenger.fail = true
	f.clock.Advance(time.Minute)
	assert.Zero(t, f.ext.deliverDue(context.Background()))

	left, err := f.ext.store.ListUser(context.Background(), testUser)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestLoopDelivers(t *testing.T) {
	f := setup(t, 10*time.Millisecond)
	_, err := f.run(testUser, "reminder add 1s hello")
	require.NoError(t, err)
	f.clock.Advance(time.Second)

	assert.Eventually(t, func() bool { return len(f.messenger.deliveries()) == 1 }, time.Second, 10*time.Millisecond)

	// Unloading stops the loop
	require.NoError(t, f.ctl.Unload(context.Background(), Name))
	assert.False(t, f.ctl.IsLoaded(Name))
}
