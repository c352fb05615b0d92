package defence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/defcalls/src/defence"
	"github.com/stake-plus/defcalls/src/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubCreator struct {
	requests []defence.CallRequest
	errFor   map[defence.Kind]error
}

func (s *stubCreator) CreateCall(_ context.Context, req defence.CallRequest) (*defence.Call, error) {
	s.requests = append(s.requests, req)
	if err := s.errFor[req.Kind]; err != nil {
		return nil, err
	}
	return &defence.Call{ChannelID: fmt.Sprintf("c%d", len(s.requests)), Kind: req.Kind}, nil
}

type stubConfigs struct {
	cfg   *defence.Config
	saved *defence.Config
	err   error
}

func (s *stubConfigs) DefenceConfig(context.Context, string) (*defence.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.cfg == nil {
		return nil, defence.ErrConfigMissing
	}
	return s.cfg, nil
}

func (s *stubConfigs) Save(_ context.Context, _ string, cfg *defence.Config) error {
	s.saved = cfg
	return s.err
}

type stubDirectory map[[2]int]directory.Village

func (d stubDirectory) FindVillageAt(x, y int) (directory.Village, bool) {
	v, ok := d[[2]int{x, y}]
	return v, ok
}

func newHandler(t *testing.T, calls CallCreator, configs ConfigEditor) *Handler {
	return &Handler{
		Calls:      calls,
		Configs:    configs,
		Directory:  stubDirectory{{5, 6}: {Name: "Hill", Player: "Ares", Tribe: 2}},
		MapBaseURL: "https://ts.example",
		Log:        zaptest.NewLogger(t),
	}
}

func TestDefenceCommand(t *testing.T) {
	calls := &stubCreator{}
	h := newHandler(t, calls, &stubConfigs{})
	requester := defence.Requester{ID: "u1", Source: defence.SourceCommand}

	reply := h.Defence(context.Background(), "guild", requester, DefenceInput{X: 1, Y: 2, Amount: 500, Time: "18:00", Crop: 200})
	assert.Equal(t, "✅ Defence channel created: <#c1>\n✅ Crop channel created: <#c2>", reply)
	require.Len(t, calls.requests, 2)
	assert.Equal(t, defence.KindNormal, calls.requests[0].Kind)
	assert.Equal(t, defence.KindCrop, calls.requests[1].Kind)
	assert.Equal(t, 200, calls.requests[1].Amount)
	assert.Equal(t, "18:00", calls.requests[1].Deadline)

	standing := h.Defence(context.Background(), "guild", requester, DefenceInput{Amount: 1, Standing: true})
	assert.Equal(t, "✅ Defence channel created: <#c3>", standing)
	assert.Equal(t, defence.KindStanding, calls.requests[2].Kind)
}

func TestStandingDefenceOpensCrop(t *testing.T) {
	calls := &stubCreator{}
	h := newHandler(t, calls, &stubConfigs{})
	reply := h.Defence(context.Background(), "guild", defence.Requester{ID: "u1"}, DefenceInput{Amount: 900, Standing: true, Crop: 150})

	assert.Equal(t, "✅ Defence channel created: <#c1>\n✅ Crop channel created: <#c2>", reply)
	require.Len(t, calls.requests, 2)
	assert.Equal(t, defence.KindStanding, calls.requests[0].Kind)
	assert.Equal(t, defence.KindCrop, calls.requests[1].Kind)
	assert.Empty(t, calls.requests[1].Deadline)
	assert.Equal(t, 150, calls.requests[1].Amount)
}

func TestDefenceCommandCropFailureKeepsCall(t *testing.T) {
	calls := &stubCreator{errFor: map[defence.Kind]error{defence.KindCrop: defence.ErrCreationFailed}}
	h := newHandler(t, calls, &stubConfigs{})
	reply := h.Defence(context.Background(), "guild", defence.Requester{ID: "u1"}, DefenceInput{Amount: 1, Time: "18:00", Crop: 5})
	assert.Equal(t, "✅ Defence channel created: <#c1>", reply)
}

func TestDefenceErrorReplies(t *testing.T) {
	cases := map[error]string{
		defence.ErrUnauthorized:      "permission",
		defence.ErrConfigMissing:     "/config set",
		defence.ErrTimeRequired:      "time is required",
		defence.ErrInvalidTimeFormat: "HH:mm",
		fmt.Errorf("%w: boom", defence.ErrCreationFailed): "Sorry",
		errors.New("anything else"):                       "Sorry",
	}
	for err, want := range cases {
		assert.Contains(t, defenceErrorReply(err), want, err.Error())
	}
}

func TestConfigView(t *testing.T) {
	configs := &stubConfigs{}
	h := newHandler(t, &stubCreator{}, configs)
	assert.Contains(t, h.ConfigView(context.Background(), "guild"), "/config set")

	configs.cfg = &defence.Config{ParentCategory: "cat", ViewRoles: []string{"v"}, PingRoles: []string{"p"}, LogChannel: "l", InitiatorLogChannel: "i"}
	view := h.ConfigView(context.Background(), "guild")
	assert.Contains(t, view, "Category: <#cat>")
	assert.Contains(t, view, "View roles: <@&v>")
	assert.NotContains(t, view, "Crop category")
}

func TestConfigSet(t *testing.T) {
	configs := &stubConfigs{}
	h := newHandler(t, &stubCreator{}, configs)
	in := ConfigInput{
		Category:     ResolvedChannel{ID: "cat", RightKind: true},
		LogChannel:   ResolvedChannel{ID: "log", RightKind: true},
		InitiatorLog: ResolvedChannel{ID: "init", RightKind: true},
		ViewRole:     "v",
		PingRole:     "p",
	}

	assert.Contains(t, h.ConfigSet(context.Background(), "guild", in), "administrators")
	assert.Nil(t, configs.saved)

	in.Admin = true
	in.LogChannel.RightKind = false
	assert.Contains(t, h.ConfigSet(context.Background(), "guild", in), "text channels")

	in.LogChannel.RightKind = true
	in.CropCategory = &ResolvedChannel{ID: "crop", RightKind: true}
	in.CommandRole = "officer"
	assert.Equal(t, "✅ Configuration saved.", h.ConfigSet(context.Background(), "guild", in))
	require.NotNil(t, configs.saved)
	assert.Equal(t, &defence.Config{
		ParentCategory:      "cat",
		CropCategory:        "crop",
		ViewRoles:           []string{"v"},
		PingRoles:           []string{"p"},
		CommandRoles:        []string{"officer"},
		LogChannel:          "log",
		InitiatorLogChannel: "init",
	}, configs.saved)
}

func TestCoords(t *testing.T) {
	h := newHandler(t, &stubCreator{}, &stubConfigs{})
	assert.Equal(t, "📍 **Hill** (Ares, Teutons) at (5, 6)\n<https://ts.example/karte.php?x=5&y=6>", h.Coords(5, 6))
	assert.Equal(t, "📍 (0, 0)\n<https://ts.example/karte.php?x=0&y=0>", h.Coords(0, 0))
}

func TestParseOptions(t *testing.T) {
	raw := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "x", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(-4)},
		{Name: "y", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(9)},
		{Name: "amount", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3000)},
		{Name: "time", Type: discordgo.ApplicationCommandOptionString, Value: " 18:00 "},
		{Name: "standing", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
	}
	assert.Equal(t, DefenceInput{X: -4, Y: 9, Amount: 3000, Time: "18:00", Standing: true}, parseDefenceInput(raw))

	cfgRaw := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "category", Type: discordgo.ApplicationCommandOptionChannel, Value: "cat"},
		{Name: "log_channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "log"},
		{Name: "initiator_log", Type: discordgo.ApplicationCommandOptionChannel, Value: "init"},
		{Name: "view_role", Type: discordgo.ApplicationCommandOptionRole, Value: "v"},
		{Name: "ping_role", Type: discordgo.ApplicationCommandOptionRole, Value: "p"},
	}
	resolved := &discordgo.ApplicationCommandInteractionDataResolved{Channels: map[string]*discordgo.Channel{
		"cat":  {ID: "cat", Type: discordgo.ChannelTypeGuildCategory},
		"log":  {ID: "log", Type: discordgo.ChannelTypeGuildText},
		"init": {ID: "init", Type: discordgo.ChannelTypeGuildVoice},
	}}
	in := parseConfigInput(cfgRaw, resolved)
	assert.True(t, in.Category.RightKind)
	assert.True(t, in.LogChannel.RightKind)
	assert.False(t, in.InitiatorLog.RightKind)
	assert.Equal(t, "v", in.ViewRole)
	assert.Nil(t, in.CropCategory)
	assert.Empty(t, in.CommandRole)
}
