package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/gatehook/internal/diag"
	"github.com/nextlevelbuilder/gatehook/pkg/hookwire"
)

type fakeREST struct {
	calls     []string
	lastSend  *discordgo.MessageSend
	sendErr   error
	reactErr  error
	threadErr error
	fetchErr  error
	fetched   *discordgo.Message
	started   *discordgo.Channel
}

func (f *fakeREST) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.calls = append(f.calls, fmt.Sprintf("send:%s:%s", channelID, data.Content))
	f.lastSend = data
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &discordgo.Message{ID: "sent"}, nil
}

func (f *fakeREST) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, fmt.Sprintf("react:%s:%s:%s", channelID, messageID, emojiID))
	return f.reactErr
}

func (f *fakeREST) MessageThreadStartComplex(channelID, messageID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.calls = append(f.calls, fmt.Sprintf("threadstart:%s:%s:%s:%d", channelID, messageID, data.Name, data.AutoArchiveDuration))
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	if f.started != nil {
		return f.started, nil
	}
	return &discordgo.Channel{ID: "thread-1", Type: discordgo.ChannelTypeGuildPublicThread}, nil
}

func (f *fakeREST) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.calls = append(f.calls, fmt.Sprintf("fetch:%s:%s", channelID, messageID))
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetched != nil {
		return f.fetched, nil
	}
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

type fakeChannels struct {
	thread bool
}

func (f *fakeChannels) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	return nil, errors.New("not wired")
}

func (f *fakeChannels) IsThread(ctx context.Context, channelID string) bool {
	return f.thread
}

func newExecutor(rest *fakeREST, inThread bool) *Executor {
	return New(rest, &fakeChannels{thread: inThread}, diag.NewMetrics())
}

func guildTarget() Target {
	return Target{MessageID: "m1", ChannelID: "c1", GuildID: "g1", Content: "hello world"}
}

func TestExecuteRunsInOrderAndContinuesOnFailure(t *testing.T) {
	rest := &fakeREST{sendErr: errors.New("boom")}
	x := newExecutor(rest, false)

	x.Execute(context.Background(), guildTarget(), []hookwire.Action{
		{Type: hookwire.ActionReply, Content: "first"},
		{Type: hookwire.ActionReact, Emoji: "👍"},
	})

	want := []string{"send:c1:first", "react:c1:m1:👍"}
	if len(rest.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", rest.calls, want)
	}
	for i := range want {
		if rest.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, rest.calls[i], want[i])
		}
	}
}

func TestExecuteSkipsUnknownActionType(t *testing.T) {
	rest := &fakeREST{}
	x := newExecutor(rest, false)

	x.Execute(context.Background(), guildTarget(), []hookwire.Action{
		{Type: "pin"},
		{Type: hookwire.ActionReact, Emoji: "🎉"},
	})

	if len(rest.calls) != 1 || rest.calls[0] != "react:c1:m1:🎉" {
		t.Fatalf("calls = %v, want only the reaction", rest.calls)
	}
}

func TestReplyBuildsReference(t *testing.T) {
	rest := &fakeREST{}
	x := newExecutor(rest, false)

	x.Execute(context.Background(), guildTarget(), []hookwire.Action{
		{Type: hookwire.ActionReply, Content: "hi there", Mention: true},
	})

	send := rest.lastSend
	if send == nil {
		t.Fatal("no message sent")
	}
	ref := send.Reference
	if ref == nil || ref.MessageID != "m1" || ref.ChannelID != "c1" || ref.GuildID != "g1" {
		t.Errorf("reference = %+v, want target m1/c1/g1", ref)
	}
	if send.AllowedMentions == nil || !send.AllowedMentions.RepliedUser {
		t.Errorf("allowed mentions = %+v, want replied user true", send.AllowedMentions)
	}
	if len(send.AllowedMentions.Parse) != 0 {
		t.Errorf("parse list = %v, want empty to suppress content mentions", send.AllowedMentions.Parse)
	}
}

func TestReplyTruncatesContent(t *testing.T) {
	rest := &fakeREST{}
	x := newExecutor(rest, false)

	x.Execute(context.Background(), guildTarget(), []hookwire.Action{
		{Type: hookwire.ActionReply, Content: strings.Repeat("x", 2500)},
	})

	if rest.lastSend == nil {
		t.Fatal("no message sent")
	}
	if n := utf8.RuneCountInString(rest.lastSend.Content); n != 2000 {
		t.Errorf("sent content is %d runes, want 2000", n)
	}
	if !strings.HasSuffix(rest.lastSend.Content, "…") {
		t.Error("truncated content lacks ellipsis")
	}
}

func TestReactPassesEmojiThrough(t *testing.T) {
	rest := &fakeREST{}
	x := newExecutor(rest, false)

	x.Execute(context.Background(), guildTarget(), []hookwire.Action{
		{Type: hookwire.ActionReact, Emoji: "party_blob:53917236213"},
	})

	if len(rest.calls) != 1 || rest.calls[0] != "react:c1:m1:party_blob:53917236213" {
		t.Fatalf("calls = %v, want the custom emoji form unchanged", rest.calls)
	}
}

func TestThreadRejectedInDirectMessages(t *testing.T) {
	rest := &fakeREST{}
	x := newExecutor(rest, false)

	err := x.thread(context.Background(), Target{MessageID: "m1", ChannelID: "dm1"}, hookwire.Action{Type: hookwire.ActionThread, Content: "hi"})
	if !errors.Is(err, ErrThreadNotSupported) {
		t.Fatalf("err = %v, want ErrThreadNotSupported", err)
	}
	if len(rest.calls) != 0 {
		t.Errorf("calls = %v, want none", rest.calls)
	}
}

func TestThreadInsideThreadPostsInPlace(t *testing.T) {
	rest := &fakeREST{}
	x := newExecutor(rest, true)

	x.Execute(context.Background(), guildTarget(), []hookwire.Action{
		{Type: hookwire.ActionThread, Content: "continuing"},
	})

	if len(rest.calls) != 1 || rest.calls[0] != "send:c1:continuing" {
		t.Fatalf("calls = %v, want a single send to the current channel", rest.calls)
	}
}

func TestThreadCreatesAndPosts(t *testing.T) {
	rest := &fakeREST{}
	x := newExecutor(rest, false)

	x.Execute(context.Background(), guildTarget(), []hookwire.Action{
		{Type: hookwire.ActionThread, Name: "Release discussion", Content: "kicking off"},
	})

	want := []string{"threadstart:c1:m1:Release discussion:1440", "send:thread-1:kicking off"}
	if len(rest.calls) != 2 || rest.calls[0] != want[0] || rest.calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", rest.calls, want)
	}
}

func TestThreadNameSources(t *testing.T) {
	tests := []struct {
		name     string
		action   hookwire.Action
		target   Target
		fetched  *discordgo.Message
		wantName string
	}{
		{
			name:     "explicit name wins",
			action:   hookwire.Action{Type: hookwire.ActionThread, Name: "Chosen", Content: "body"},
			target:   guildTarget(),
			wantName: "Chosen",
		},
		{
			name:     "explicit name cut without ellipsis",
			action:   hookwire.Action{Type: hookwire.ActionThread, Name: strings.Repeat("n", 150)},
			target:   guildTarget(),
			wantName: strings.Repeat("n", 100),
		},
		{
			name:     "derived from target content",
			action:   hookwire.Action{Type: hookwire.ActionThread},
			target:   Target{MessageID: "m1", ChannelID: "c1", GuildID: "g1", Content: "  \nfirst real line\nsecond"},
			wantName: "first real line",
		},
		{
			name:     "derived from fetched message",
			action:   hookwire.Action{Type: hookwire.ActionThread},
			target:   Target{MessageID: "m1", ChannelID: "c1", GuildID: "g1"},
			fetched:  &discordgo.Message{ID: "m1", Content: "fetched topic"},
			wantName: "fetched topic",
		},
		{
			name:     "fallback when nothing derivable",
			action:   hookwire.Action{Type: hookwire.ActionThread},
			target:   Target{MessageID: "m1", ChannelID: "c1", GuildID: "g1"},
			fetched:  &discordgo.Message{ID: "m1", Content: "   "},
			wantName: "Thread",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest := &fakeREST{fetched: tt.fetched}
			x := newExecutor(rest, false)

			x.Execute(context.Background(), tt.target, []hookwire.Action{tt.action})

			want := fmt.Sprintf("threadstart:c1:m1:%s:1440", tt.wantName)
			for _, call := range rest.calls {
				if call == want {
					return
				}
			}
			t.Errorf("calls = %v, want one equal to %q", rest.calls, want)
		})
	}
}

func TestThreadArchiveDuration(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 1440},
		{60, 60},
		{1440, 1440},
		{4320, 4320},
		{10080, 10080},
		{55, 1440},
		{-5, 1440},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.in), func(t *testing.T) {
			rest := &fakeREST{}
			x := newExecutor(rest, false)

			x.Execute(context.Background(), guildTarget(), []hookwire.Action{
				{Type: hookwire.ActionThread, Name: "T", AutoArchiveDuration: tt.in},
			})

			want := fmt.Sprintf("threadstart:c1:m1:T:%d", tt.want)
			if len(rest.calls) == 0 || rest.calls[0] != want {
				t.Fatalf("calls = %v, want first %q", rest.calls, want)
			}
		})
	}
}

func TestThreadAlreadyExistsPostsIntoIt(t *testing.T) {
	rest := &fakeREST{
		threadErr: &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: 160004}},
		fetched: &discordgo.Message{
			ID:     "m1",
			Thread: &discordgo.Channel{ID: "existing-thread"},
		},
	}
	x := newExecutor(rest, false)

	err := x.thread(context.Background(), guildTarget(), hookwire.Action{Type: hookwire.ActionThread, Name: "T", Content: "late"})
	if err != nil {
		t.Fatalf("thread() error = %v", err)
	}
	last := rest.calls[len(rest.calls)-1]
	if last != "send:existing-thread:late" {
		t.Fatalf("calls = %v, want final send into existing-thread", rest.calls)
	}
}

func TestThreadExistsButMessageCarriesNone(t *testing.T) {
	rest := &fakeREST{
		threadErr: &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: 160004}},
		fetched:   &discordgo.Message{ID: "m1"},
	}
	x := newExecutor(rest, false)

	err := x.thread(context.Background(), guildTarget(), hookwire.Action{Type: hookwire.ActionThread, Name: "T"})
	if err == nil {
		t.Fatal("thread() error = nil, want failure when the message has no thread")
	}
}

func TestThreadCreateFailurePropagates(t *testing.T) {
	rest := &fakeREST{
		threadErr: &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: 50001}},
	}
	x := newExecutor(rest, false)

	err := x.thread(context.Background(), guildTarget(), hookwire.Action{Type: hookwire.ActionThread, Name: "T"})
	if err == nil {
		t.Fatal("thread() error = nil, want create failure")
	}
	for _, call := range rest.calls {
		if strings.HasPrefix(call, "fetch:") {
			t.Fatalf("calls = %v, fetch only follows the already-exists code", rest.calls)
		}
	}
}
