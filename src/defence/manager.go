package defence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stake-plus/defcalls/src/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the in-memory lifecycle position of a tracked call.
type State int

const (
	StateOpen State = iota
	StateCompleted
	StateLocked
	StateExpired
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCompleted:
		return "completed"
	case StateLocked:
		return "locked"
	case StateExpired:
		return "expired"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Dependencies are the collaborators a Manager drives. Events and
// Directory may be nil.
type Dependencies struct {
	Gateway   Gateway
	Configs   ConfigStore
	Directory Directory
	Calls     CallStore
	Ledger    SubmissionLedger
	Events    EventPublisher
	Clock     Clock
	Logger    *zap.Logger
}

// Options tune lifecycle timings.
type Options struct {
	CompletionGrace time.Duration
	StandingWindow  time.Duration
	CropWindow      time.Duration
	MapBaseURL      string
	RestoreWorkers  int
	Reminders       []ReminderOffset
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		CompletionGrace: 2 * time.Hour,
		StandingWindow:  24 * time.Hour,
		CropWindow:      2 * time.Hour,
		RestoreWorkers:  8,
	}
}

type tracked struct {
	mu        sync.Mutex
	call      Call
	state     State
	listening bool
	pingRoles []string
	viewRoles []string
	timers    []Timer
}

func (t *tracked) stopTimers() {
	for _, timer := range t.timers {
		timer.Stop()
	}
	t.timers = nil
}

// Manager owns every live defence call: it creates channels, matches
// pledges, fires reminders and tears channels down.
type Manager struct {
	gateway   Gateway
	configs   ConfigStore
	directory Directory
	calls     CallStore
	ledger    SubmissionLedger
	events    EventPublisher
	clock     Clock
	log       *zap.Logger
	opts      Options
	scheduler *Scheduler
	sanitizer *bluemonday.Policy

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	tracked map[string]*tracked
	closed  bool
}

// NewManager wires a manager. Zero option fields take their defaults.
func NewManager(deps Dependencies, opts Options) (*Manager, error) {
	if deps.Gateway == nil || deps.Configs == nil || deps.Calls == nil || deps.Ledger == nil {
		return nil, errors.New("defence: gateway, config store, registry and ledger are required")
	}
	defaults := DefaultOptions()
	if opts.CompletionGrace <= 0 {
		opts.CompletionGrace = defaults.CompletionGrace
	}
	if opts.StandingWindow <= 0 {
		opts.StandingWindow = defaults.StandingWindow
	}
	if opts.CropWindow <= 0 {
		opts.CropWindow = defaults.CropWindow
	}
	if opts.RestoreWorkers <= 0 {
		opts.RestoreWorkers = defaults.RestoreWorkers
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		gateway:   deps.Gateway,
		configs:   deps.Configs,
		directory: deps.Directory,
		calls:     deps.Calls,
		ledger:    deps.Ledger,
		events:    deps.Events,
		clock:     clock,
		log:       log.Named("defence"),
		opts:      opts,
		scheduler: NewScheduler(clock, opts.Reminders...),
		sanitizer: bluemonday.StrictPolicy(),
		ctx:       ctx,
		cancel:    cancel,
		tracked:   make(map[string]*tracked),
	}, nil
}

// CreateCall validates the request, opens a channel for it and starts
// listening for pledges.
func (m *Manager) CreateCall(ctx context.Context, req CallRequest) (*Call, error) {
	kind := req.Kind
	if kind == "" {
		kind = KindNormal
	}
	deadline := strings.TrimSpace(req.Deadline)
	if req.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	if kind == KindNormal && deadline == "" {
		return nil, ErrTimeRequired
	}
	if deadline != "" {
		if err := ValidateClock(deadline); err != nil {
			return nil, err
		}
	}
	if kind == KindStanding {
		deadline = ""
	}

	cfg, err := m.configs.DefenceConfig(ctx, req.CommunityID)
	if err != nil {
		if errors.Is(err, ErrConfigMissing) {
			return nil, ErrConfigMissing
		}
		return nil, fmt.Errorf("%w: load config: %w", ErrCreationFailed, err)
	}
	if cfg == nil {
		return nil, ErrConfigMissing
	}
	if req.Requester.Source == SourceCommand && !cfg.AllowsRequester(req.Requester.Roles) {
		return nil, ErrUnauthorized
	}

	now := m.clock.Now().UTC()
	call := Call{
		CommunityID: req.CommunityID,
		Kind:        kind,
		Amount:      req.Amount,
		Coordinates: req.Coordinates,
		Deadline:    deadline,
		CreatedAt:   now,
		Status:      StatusOpen,
	}
	nameDate := now
	switch kind {
	case KindStanding:
		call.ExpiresAt = now.Add(m.opts.StandingWindow)
	case KindCrop:
		call.ExpiresAt = now.Add(m.opts.CropWindow)
		if deadline != "" {
			attack, err := ResolveDeadline(now, deadline)
			if err != nil {
				return nil, err
			}
			nameDate = attack
		}
	default:
		attack, err := ResolveDeadline(now, deadline)
		if err != nil {
			return nil, err
		}
		call.AttackTime = &attack
		call.ExpiresAt = attack
		nameDate = attack
	}

	name := channelName(kind, villageIdentifier(m.directory, req.Coordinates), nameDate)
	parent := cfg.ParentCategory
	if kind == KindCrop && cfg.CropCategory != "" {
		parent = cfg.CropCategory
	}
	overwrites := []PermissionOverwrite{{RoleID: EveryoneRole, Deny: PermissionView}}
	for _, role := range cfg.ViewRoles {
		overwrites = append(overwrites, PermissionOverwrite{
			RoleID: role,
			Allow:  PermissionView | PermissionSend | PermissionReadHistory,
		})
	}

	ch, err := m.gateway.CreateChannel(ctx, ChannelSpec{
		CommunityID: req.CommunityID,
		Name:        name,
		ParentID:    parent,
		Overwrites:  overwrites,
	})
	if err != nil {
		m.log.Error("channel creation failed", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCreationFailed, err)
	}
	call.ChannelID = ch.ID
	call.ChannelName = ch.Name
	if call.ChannelName == "" {
		call.ChannelName = name
	}
	log := m.log.With(zap.String("channel", call.ChannelID), zap.String("kind", string(kind)))

	announcement := initialAnnouncement(&call, cfg.PingRoles, m.opts.MapBaseURL)
	if err := m.gateway.SendMessage(ctx, call.ChannelID, OutboundMessage{Content: announcement, MentionRoles: cfg.PingRoles}); err != nil {
		m.logGatewayErr(log, "initial announcement failed", err)
	}
	call.Messages = []LogMessage{{Content: announcement, Timestamp: now, Origin: OriginInitial}}

	if err := m.calls.Add(call); err != nil {
		log.Error("registry add failed", zap.Error(err))
	}

	t := &tracked{
		call:      call.Clone(),
		state:     StateOpen,
		listening: true,
		pingRoles: cfg.PingRoles,
		viewRoles: cfg.ViewRoles,
	}
	t.mu.Lock()
	m.track(t)
	m.armOpen(t, now)
	t.mu.Unlock()

	m.postRequestLogs(ctx, cfg, &call, req.Requester)
	m.publish(ctx, Event{Type: EventCreated, At: now}, &call)

	log.Info("defence call opened",
		zap.String("name", call.ChannelName),
		zap.Int("amount", call.Amount),
		zap.Time("expires_at", call.ExpiresAt))
	out := call.Clone()
	return &out, nil
}

// OnMessage logs a message posted in a tracked channel and completes the
// call when it carries a matching pledge.
func (m *Manager) OnMessage(ctx context.Context, msg InboundMessage) error {
	t := m.lookup(msg.ChannelID)
	if t == nil {
		return ErrNotTracked
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateExpired || t.state == StateDeleted {
		return ErrNotTracked
	}

	at := msg.Timestamp
	if at.IsZero() {
		at = m.clock.Now()
	}
	entry := LogMessage{Content: m.sanitizer.Sanitize(msg.Content), Timestamp: at.UTC(), Origin: OriginResponse}
	if err := m.calls.AppendMessage(msg.ChannelID, entry); err != nil {
		m.log.Warn("message log append failed", zap.String("channel", msg.ChannelID), zap.Error(err))
	}

	if msg.Bot || !t.listening || t.state != StateOpen {
		return nil
	}
	pledge, ok := ParsePledge(msg.Content)
	if !ok || !pledge.Targets(t.call.Amount) {
		return nil
	}
	sub := Submission{
		Units:        pledge.Pledged,
		DeclaredTime: t.call.Deadline,
		UserID:       msg.AuthorID,
		DisplayName:  msg.DisplayName,
		SubmittedAt:  at.UTC(),
		Coordinates:  t.call.Coordinates,
		ChannelID:    t.call.ChannelID,
		Kind:         t.call.Kind,
	}
	if !pledge.Completes(t.call.Amount) {
		if err := m.ledger.Append(sub.ChannelID, sub); err != nil {
			m.log.Warn("ledger append failed", zap.String("channel", sub.ChannelID), zap.Error(err))
		}
		m.publish(ctx, Event{Type: EventPledged, At: sub.SubmittedAt, Submission: &sub}, &t.call)
		return nil
	}
	m.complete(ctx, t, sub)
	return nil
}

// complete runs with t.mu held.
func (m *Manager) complete(ctx context.Context, t *tracked, sub Submission) {
	id := t.call.ChannelID
	log := m.log.With(zap.String("channel", id), zap.String("kind", string(t.call.Kind)))
	now := m.clock.Now().UTC()

	t.listening = false
	t.stopTimers()
	t.state = StateCompleted

	if err := m.ledger.Append(id, sub); err != nil {
		log.Warn("ledger append failed", zap.Error(err))
	}
	m.publish(ctx, Event{Type: EventCompleted, At: now, Submission: &sub}, &t.call)

	notice := completionAnnouncement(&t.call, now, m.opts.CompletionGrace)
	if err := m.gateway.SendMessage(ctx, id, OutboundMessage{Content: notice}); err != nil {
		m.logGatewayErr(log, "completion announcement failed", err)
	}

	viewRoles := t.viewRoles
	if cfg, err := m.configs.DefenceConfig(ctx, t.call.CommunityID); err == nil && cfg != nil {
		viewRoles = cfg.ViewRoles
	} else if err != nil {
		log.Warn("config reload failed, locking with cached roles", zap.Error(err))
	}
	locked := true
	for _, role := range viewRoles {
		err := m.gateway.SetPermission(ctx, id, PermissionOverwrite{
			RoleID: role,
			Allow:  PermissionView | PermissionReadHistory,
			Deny:   PermissionSend,
		})
		if err != nil {
			locked = false
			m.logGatewayErr(log.With(zap.String("role", role)), "channel lock failed", err)
		}
	}
	if locked {
		t.state = StateLocked
	}

	deleteAt := now.Add(m.opts.CompletionGrace)
	if t.call.Kind == KindStanding {
		deleteAt = t.call.ExpiresAt
	}
	t.call.Status = StatusCompleted
	t.call.CompletedAt = &now
	t.call.DeleteAt = &deleteAt
	err := m.calls.Update(id, func(c *Call) {
		c.Status = StatusCompleted
		completedAt, deleteAt := now, deleteAt
		c.CompletedAt = &completedAt
		c.DeleteAt = &deleteAt
	})
	if err != nil {
		log.Error("registry update failed", zap.Error(err))
	}

	t.timers = append(t.timers, m.clock.AfterFunc(deleteAt.Sub(now), m.guard(id, "delete", func() { m.deleteCompleted(id) })))
	m.endListener(id)

	log.Info("defence call completed",
		zap.String("user", sub.UserID),
		zap.Int64("units", sub.Units),
		zap.Time("delete_at", deleteAt))
}

func (m *Manager) expire(id string) {
	t := m.lookup(id)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateOpen {
		return
	}
	log := m.log.With(zap.String("channel", id), zap.String("kind", string(t.call.Kind)))
	t.state = StateExpired
	t.listening = false
	t.stopTimers()

	ctx := m.ctx
	if err := m.gateway.SendMessage(ctx, id, OutboundMessage{Content: expiryAnnouncement(&t.call)}); err != nil {
		m.logGatewayErr(log, "expiry announcement failed", err)
	}
	if err := m.gateway.DeleteChannel(ctx, id); err != nil {
		m.logGatewayErr(log, "channel delete failed", err)
	}
	if err := m.calls.Remove(id); err != nil {
		log.Error("registry remove failed", zap.Error(err))
	}
	m.endListener(id)
	m.publish(ctx, Event{Type: EventExpired, At: m.clock.Now().UTC()}, &t.call)

	t.state = StateDeleted
	m.untrack(id)
	log.Info("defence call expired")
}

func (m *Manager) deleteCompleted(id string) {
	t := m.lookup(id)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateCompleted && t.state != StateLocked {
		return
	}
	log := m.log.With(zap.String("channel", id))
	t.stopTimers()

	ctx := m.ctx
	if err := m.gateway.DeleteChannel(ctx, id); err != nil {
		m.logGatewayErr(log, "channel delete failed", err)
	}
	if err := m.calls.Remove(id); err != nil {
		log.Error("registry remove failed", zap.Error(err))
	}
	m.publish(ctx, Event{Type: EventDeleted, At: m.clock.Now().UTC()}, &t.call)

	t.state = StateDeleted
	m.untrack(id)
	log.Info("completed call deleted")
}

func (m *Manager) remind(id string, r Reminder) {
	t := m.lookup(id)
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateOpen {
		return
	}
	msg := OutboundMessage{
		Content:      withMentions(t.pingRoles, fmt.Sprintf("⏰ **%s**", r.Label)),
		MentionRoles: t.pingRoles,
	}
	if err := m.gateway.SendMessage(m.ctx, id, msg); err != nil {
		m.logGatewayErr(m.log.With(zap.String("channel", id)), "reminder failed", err)
	}
}

// RestoreOnStartup re-attaches listeners and timers for every persisted
// call and discards the ones whose time has passed.
func (m *Manager) RestoreOnStartup(ctx context.Context) error {
	calls, err := m.calls.LoadAll()
	if err != nil {
		return fmt.Errorf("defence: load registry: %w", err)
	}
	now := m.clock.Now().UTC()

	var restored, dropped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.RestoreWorkers)
	for _, call := range calls {
		call := call
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if m.restoreCall(gctx, call, now) {
				restored.Add(1)
			} else {
				dropped.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("defence: restore: %w", err)
	}

	m.purgeOrphanedSubmissions()
	m.log.Info("restore complete",
		zap.Int64("restored", restored.Load()),
		zap.Int64("dropped", dropped.Load()))
	return nil
}

func (m *Manager) restoreCall(ctx context.Context, call Call, now time.Time) bool {
	if call.ChannelID == "" || m.lookup(call.ChannelID) != nil {
		return false
	}
	log := m.log.With(zap.String("channel", call.ChannelID), zap.String("kind", string(call.Kind)))

	end := call.EndsAt()
	if !end.After(now) {
		if err := m.gateway.DeleteChannel(ctx, call.ChannelID); err != nil {
			m.logGatewayErr(log, "stale channel delete failed", err)
		}
		if err := m.calls.Remove(call.ChannelID); err != nil {
			log.Error("registry remove failed", zap.Error(err))
		}
		log.Info("stale call dropped", zap.Time("ended_at", end))
		return false
	}

	t := &tracked{call: call.Clone()}
	id := call.ChannelID
	if call.IsOpen() {
		t.state = StateOpen
		t.listening = true
		cfg, err := m.configs.DefenceConfig(ctx, call.CommunityID)
		if err != nil || cfg == nil {
			log.Warn("config unavailable, reminders not restored", zap.Error(err))
		} else {
			t.pingRoles = cfg.PingRoles
			t.viewRoles = cfg.ViewRoles
		}

		t.mu.Lock()
		m.track(t)
		t.timers = append(t.timers, m.clock.AfterFunc(call.ExpiresAt.Sub(now), m.guard(id, "expire", func() { m.expire(id) })))
		if cfg != nil && err == nil {
			t.timers = append(t.timers, m.armReminders(t, now)...)
		}
		t.mu.Unlock()
		log.Info("open call restored", zap.Time("expires_at", call.ExpiresAt))
		return true
	}

	t.state = StateCompleted
	t.mu.Lock()
	m.track(t)
	t.timers = append(t.timers, m.clock.AfterFunc(end.Sub(now), m.guard(id, "delete", func() { m.deleteCompleted(id) })))
	t.mu.Unlock()
	log.Info("completed call restored", zap.Time("delete_at", end))
	return true
}

// armOpen runs with t.mu held.
func (m *Manager) armOpen(t *tracked, now time.Time) {
	id := t.call.ChannelID
	t.timers = append(t.timers, m.clock.AfterFunc(t.call.ExpiresAt.Sub(now), m.guard(id, "expire", func() { m.expire(id) })))
	t.timers = append(t.timers, m.armReminders(t, now)...)
}

func (m *Manager) armReminders(t *tracked, now time.Time) []Timer {
	if t.call.Kind != KindNormal || t.call.AttackTime == nil {
		return nil
	}
	id := t.call.ChannelID
	return m.scheduler.Schedule(*t.call.AttackTime, now, func(r Reminder) {
		m.guard(id, "remind", func() { m.remind(id, r) })()
	})
}

func (m *Manager) purgeOrphanedSubmissions() {
	for _, id := range m.ledger.Channels() {
		t := m.lookup(id)
		if t != nil {
			t.mu.Lock()
			listening := t.listening
			t.mu.Unlock()
			if listening {
				continue
			}
		}
		m.endListener(id)
	}
}

func (m *Manager) endListener(id string) {
	if err := m.ledger.Purge(id); err != nil {
		m.log.Warn("ledger purge failed", zap.String("channel", id), zap.Error(err))
	}
}

func (m *Manager) postRequestLogs(ctx context.Context, cfg *Config, call *Call, requester Requester) {
	if cfg.InitiatorLogChannel != "" {
		if err := m.gateway.SendMessage(ctx, cfg.InitiatorLogChannel, OutboundMessage{Content: initiatorLogLine(call, requester)}); err != nil {
			m.logGatewayErr(m.log.With(zap.String("channel", cfg.InitiatorLogChannel)), "initiator log failed", err)
		}
	}
	if cfg.LogChannel != "" {
		if err := m.gateway.SendMessage(ctx, cfg.LogChannel, OutboundMessage{Content: summaryLogLine(call)}); err != nil {
			m.logGatewayErr(m.log.With(zap.String("channel", cfg.LogChannel)), "log channel post failed", err)
		}
	}
}

func (m *Manager) publish(ctx context.Context, ev Event, call *Call) {
	if m.events == nil {
		return
	}
	ev.ChannelID = call.ChannelID
	ev.CommunityID = call.CommunityID
	ev.Kind = call.Kind
	ev.Amount = call.Amount
	ev.Coordinates = call.Coordinates
	if err := m.events.Publish(ctx, ev); err != nil {
		m.log.Warn("event publish failed",
			zap.String("channel", ev.ChannelID),
			zap.String("event", string(ev.Type)),
			zap.Error(err))
	}
}

func (m *Manager) logGatewayErr(log *zap.Logger, msg string, err error) {
	switch {
	case logging.IsUnknownChannel(err):
		log.Debug(msg, zap.Error(err))
	case logging.IsRateLimit(err):
		log.Warn(msg, zap.Error(err))
	default:
		log.Error(msg, zap.Error(err))
	}
}

func (m *Manager) guard(channelID, op string, fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("timer callback panicked",
					zap.String("channel", channelID),
					zap.String("op", op),
					zap.Any("panic", r))
			}
		}()
		fn()
	}
}

func (m *Manager) track(t *tracked) {
	m.mu.Lock()
	m.tracked[t.call.ChannelID] = t
	m.mu.Unlock()
}

func (m *Manager) untrack(id string) {
	m.mu.Lock()
	delete(m.tracked, id)
	m.mu.Unlock()
}

func (m *Manager) lookup(id string) *tracked {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracked[id]
}

// State reports where a tracked call is in its lifecycle.
func (m *Manager) State(channelID string) (State, bool) {
	t := m.lookup(channelID)
	if t == nil {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, true
}

// Listening reports whether pledges in channelID are still matched.
func (m *Manager) Listening(channelID string) bool {
	t := m.lookup(channelID)
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listening
}

// Calls returns a snapshot of every tracked call.
func (m *Manager) Calls() []Call {
	m.mu.Lock()
	all := make([]*tracked, 0, len(m.tracked))
	for _, t := range m.tracked {
		all = append(all, t)
	}
	m.mu.Unlock()

	out := make([]Call, 0, len(all))
	for _, t := range all {
		t.mu.Lock()
		out = append(out, t.call.Clone())
		t.mu.Unlock()
	}
	return out
}

// Close cancels every pending timer. Calls stay in the registry for
// the next restore.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	all := make([]*tracked, 0, len(m.tracked))
	for _, t := range m.tracked {
		all = append(all, t)
	}
	m.mu.Unlock()

	m.cancel()
	for _, t := range all {
		t.mu.Lock()
		t.stopTimers()
		t.mu.Unlock()
	}
	m.log.Info("manager closed", zap.Int("tracked", len(all)))
}
