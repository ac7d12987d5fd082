package administrator

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	TestUserID   = "105487308693757952"
	TestResponse = "Test Response"
)

var (
	testSystem  *System
	testSession *discordgo.Session
)

type TestCommand struct{}

func (e *TestCommand) Descriptions() (string, string) { return "Test Description", "" }
func (e *TestCommand) Run(data *Data) (interface{}, error) {
	return TestResponse, nil
}

func init() {
	testSystem = NewStandardSystem("!")
	testSystem.Root.AddCommand(&TestCommand{}, NewTrigger("test"))

	testSession = &discordgo.Session{
		State: &discordgo.State{
			Ready: discordgo.Ready{
				User: &discordgo.User{
					ID: TestUserID,
				},
			},
		},
	}
}

func TestFindPrefix(t *testing.T) {
	cases := []struct {
		guildID          string
		msgContent       string
		expectedStripped string
		shouldBeFound    bool
		expectedSource   TriggerSource
	}{
		{"1", "!cmd", "cmd", true, PrefixSource},
		{"1", "cmd", "", false, PrefixSource},
		{"1", "<@" + TestUserID + ">cmd", "cmd", true, MentionSource},
		{"1", "<@!" + TestUserID + "> cmd", "cmd", true, MentionSource},
		{"1", "<@" + TestUserID + " cmd", "", false, MentionSource},
		{"", "!cmd", "cmd", true, DMSource},
		{"", "<@" + TestUserID + "> cmd", "cmd", true, DMSource},
		{"", "cmd", "", false, DMSource},
	}

	for k, v := range cases {
		t.Run(fmt.Sprintf("#%d-g:%v-m:%v", k, v.guildID != "", v.shouldBeFound), func(t *testing.T) {
			testData := &Data{
				Session: testSession,
				GuildID: v.guildID,
				Msg: &discordgo.Message{
					Content: v.msgContent,
				},
			}

			found := testSystem.FindPrefix(testData)
			assert.Equal(t, v.shouldBeFound, found, "Should match test case")
			if !found {
				return
			}
			assert.Equal(t, v.expectedStripped, testData.MsgStrippedPrefix, "Should be stripped off of prefix correctly")
			assert.Equal(t, v.expectedSource, testData.Source, "Should have the proper prefix")
		})
	}
}

func TestFillData(t *testing.T) {
	msg := &discordgo.Message{
		ID:        "3",
		GuildID:   "1",
		ChannelID: "2",
		Content:   "!test",
		Author:    &discordgo.User{ID: "4"},
	}

	data := testSystem.FillData(testSession, msg)
	assert.Equal(t, "1", data.GuildID)
	assert.Equal(t, "2", data.ChannelID)
	assert.Equal(t, "4", data.AuthorID)
	assert.NotEmpty(t, data.InvocationID)
	assert.True(t, data.InGuild())

	other := testSystem.FillData(testSession, msg)
	assert.NotEqual(t, data.InvocationID, other.InvocationID, "Each invocation should get its own id")

	msg.GuildID = ""
	dm := testSystem.FillData(testSession, msg)
	assert.Equal(t, DMSource, dm.Source)
	assert.False(t, dm.InGuild())
}

func TestSystemRunsCommand(t *testing.T) {
	data := testSystem.FillData(testSession, &discordgo.Message{
		GuildID:   "1",
		ChannelID: "2",
		Content:   "!test",
		Author:    &discordgo.User{ID: "4"},
	})
	require.True(t, testSystem.FindPrefix(data))

	resp, err := testSystem.Root.Run(data)
	require.NoError(t, err)
	assert.Equal(t, TestResponse, resp)
	assert.Equal(t, "test", data.Cmd.QualifiedName())
}

func TestSystemIgnoresBots(t *testing.T) {
	data := testSystem.FillData(testSession, &discordgo.Message{
		GuildID: "1",
		Content: "!test",
		Author:  &discordgo.User{ID: "4", Bot: true},
	})
	require.True(t, testSystem.FindPrefix(data))

	resp, err := testSystem.Root.Run(data)
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

type recordingSender struct {
	data  []*Data
	resps []interface{}
	errs  []error
}

func (r *recordingSender) SendResponse(data *Data, resp interface{}, err error) error {
	r.data = append(r.data, data)
	r.resps = append(r.resps, resp)
	r.errs = append(r.errs, err)
	return nil
}

func TestSystemPanickingCommandGetsGenericReply(t *testing.T) {
	sys := NewStandardSystem("!")
	sender := &recordingSender{}
	sys.ResponseSender = sender
	sys.Root.AddCommand(&FuncCmd{RunFunc: func(*Data) (interface{}, error) {
		panic("boom")
	}}, NewTrigger("boom"))

	sys.HandleMessageCreate(testSession, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "2",
		Content:   "!boom",
		Author:    &discordgo.User{ID: "4"},
	}})

	require.Len(t, sender.errs, 1)
	err := sender.errs[0]
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Nil(t, sender.resps[0])
	assert.Equal(t, ErrorClassUnclassified, ClassifyError(err))

	data := sender.data[0]
	require.NotEmpty(t, data.InvocationID)
	assert.Equal(t, fmt.Sprintf(GenericErrorFormat, data.InvocationID), ErrorReply(data, err))
}
