package defence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/defcalls/src/actions/core"
	sharedconfig "github.com/stake-plus/defcalls/src/config"
	shareddata "github.com/stake-plus/defcalls/src/data"
	"github.com/stake-plus/defcalls/src/defence"
	"github.com/stake-plus/defcalls/src/defence/store"
	shareddiscord "github.com/stake-plus/defcalls/src/discord"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var _ core.Module = (*Module)(nil)

// Module is the Discord side of the defence bot: slash commands, the
// channel message feed and restart recovery.
type Module struct {
	config  *sharedconfig.DefenceConfig
	session *discordgo.Session
	manager *defence.Manager
	ledger  *store.Ledger
	configs *shareddata.ConfigStore
	handler *Handler
	log     *zap.Logger

	restoreOnce sync.Once
	runtimeCtx  context.Context
	cancel      context.CancelFunc
}

// NewModule opens the state files and builds the lifecycle manager.
// rdb may be nil, which disables the event stream.
func NewModule(cfg *sharedconfig.DefenceConfig, db *gorm.DB, rdb *redis.Client, dir defence.Directory, log *zap.Logger) (*Module, error) {
	session, err := discordgo.New("Bot " + cfg.Base.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	log = log.Named("defence-bot")
	registry, err := store.OpenRegistry(cfg.StatePath(store.RegistryFile), log)
	if err != nil {
		return nil, fmt.Errorf("defence: open registry: %w", err)
	}
	ledger, err := store.OpenLedger(cfg.StatePath(store.LedgerFile), log)
	if err != nil {
		return nil, fmt.Errorf("defence: open ledger: %w", err)
	}

	configs := shareddata.NewConfigStore(db)
	deps := defence.Dependencies{
		Gateway:   shareddiscord.NewGateway(session),
		Configs:   configs,
		Directory: dir,
		Calls:     registry,
		Ledger:    ledger,
		Logger:    log,
	}
	if rdb != nil {
		deps.Events = shareddata.NewEventPublisher(rdb, 0)
	}
	opts := defence.DefaultOptions()
	opts.MapBaseURL = cfg.MapBaseURL
	opts.RestoreWorkers = cfg.RestoreWorkers

	manager, err := defence.NewManager(deps, opts)
	if err != nil {
		return nil, err
	}

	module := &Module{
		config:  cfg,
		session: session,
		manager: manager,
		ledger:  ledger,
		configs: configs,
		log:     log,
		handler: &Handler{
			Calls:      manager,
			Configs:    configs,
			Directory:  dir,
			MapBaseURL: cfg.MapBaseURL,
			Log:        log,
		},
	}
	module.initHandlers()
	return module, nil
}

// Name implements actions.Module.
func (m *Module) Name() string { return "defence" }

// Manager exposes the lifecycle manager to the HTTP API.
func (m *Module) Manager() *defence.Manager { return m.manager }

// Ledger exposes the pending submissions.
func (m *Module) Ledger() *store.Ledger { return m.ledger }

// Configs exposes the community config store.
func (m *Module) Configs() *shareddata.ConfigStore { return m.configs }

// Session exposes the Discord session for member lookups.
func (m *Module) Session() *discordgo.Session { return m.session }

func (m *Module) initHandlers() {
	m.session.AddHandler(m.onReady)
	m.session.AddHandler(m.onInteractionCreate)
	m.session.AddHandler(m.onMessageCreate)
}

func (m *Module) Start(ctx context.Context) error {
	m.runtimeCtx, m.cancel = context.WithCancel(ctx)
	if err := m.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return nil
}

func (m *Module) Stop(ctx context.Context) {
	if m.cancel != nil {
		m.cancel()
	}
	m.manager.Close()
	if m.session != nil {
		m.session.Close()
	}
}

func (m *Module) ctx() context.Context {
	if m.runtimeCtx != nil {
		return m.runtimeCtx
	}
	return context.Background()
}

func (m *Module) onReady(s *discordgo.Session, r *discordgo.Ready) {
	m.log.Info("logged in", zap.String("user", s.State.User.Username))

	if err := shareddiscord.RegisterSlashCommands(s, m.log, m.config.Base.GuildID); err != nil {
		m.log.Error("slash command registration failed", zap.Error(err))
	}

	m.restoreOnce.Do(func() {
		go func(ctx context.Context) {
			if err := m.manager.RestoreOnStartup(ctx); err != nil {
				m.log.Error("restore failed", zap.Error(err))
			}
		}(m.ctx())
	})
}

func (m *Module) onMessageCreate(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.GuildID == "" {
		return
	}
	name := msg.Author.GlobalName
	if msg.Member != nil && msg.Member.Nick != "" {
		name = msg.Member.Nick
	}
	if name == "" {
		name = msg.Author.Username
	}

	err := m.manager.OnMessage(m.ctx(), defence.InboundMessage{
		ChannelID:   msg.ChannelID,
		MessageID:   msg.ID,
		AuthorID:    msg.Author.ID,
		DisplayName: name,
		Content:     msg.Content,
		Bot:         msg.Author.Bot,
		Timestamp:   msg.Timestamp,
	})
	if err != nil && !errors.Is(err, defence.ErrNotTracked) {
		m.log.Warn("message handling failed", zap.String("channel", msg.ChannelID), zap.Error(err))
	}
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		respondEphemeral(s, i, "This command can only be used in a server.")
		return
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case shareddiscord.CommandDefence:
		m.deferred(s, i, func(ctx context.Context) string {
			return m.handler.Defence(ctx, i.GuildID, requesterFrom(i.Member), parseDefenceInput(data.Options))
		})
	case shareddiscord.CommandConfig:
		if len(data.Options) == 0 {
			return
		}
		sub := data.Options[0]
		switch sub.Name {
		case "view":
			m.deferred(s, i, func(ctx context.Context) string {
				return m.handler.ConfigView(ctx, i.GuildID)
			})
		case "set":
			in := parseConfigInput(sub.Options, data.Resolved)
			in.Admin = shareddiscord.IsAdministrator(i.Member)
			m.deferred(s, i, func(ctx context.Context) string {
				return m.handler.ConfigSet(ctx, i.GuildID, in)
			})
		}
	case shareddiscord.CommandCoords:
		opts := optionMap(data.Options)
		reply := m.handler.Coords(intOption(opts, "x"), intOption(opts, "y"))
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: reply},
		}); err != nil {
			m.log.Warn("coords reply failed", zap.Error(err))
		}
	}
}

func (m *Module) deferred(s *discordgo.Session, i *discordgo.InteractionCreate, run func(ctx context.Context) string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		m.log.Warn("failed to acknowledge interaction", zap.Error(err))
		return
	}
	reply := run(m.ctx())
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &reply}); err != nil {
		m.log.Warn("failed to edit interaction reply", zap.Error(err))
	}
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	})
}
