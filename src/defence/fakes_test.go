package defence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stake-plus/defcalls/src/directory"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in order on the
// calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.fn()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type sentMessage struct {
	ChannelID string
	Msg       OutboundMessage
}

type fakeGateway struct {
	mu          sync.Mutex
	nextID      int
	created     []ChannelSpec
	deleted     []string
	permissions map[string][]PermissionOverwrite
	sent        []sentMessage

	createErr error
	onSend    func(channelID string, msg OutboundMessage) error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{permissions: make(map[string][]PermissionOverwrite)}
}

func (g *fakeGateway) CreateChannel(_ context.Context, spec ChannelSpec) (Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return Channel{}, g.createErr
	}
	g.nextID++
	g.created = append(g.created, spec)
	return Channel{ID: fmt.Sprintf("chan-%d", g.nextID), Name: spec.Name}, nil
}

func (g *fakeGateway) DeleteChannel(_ context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, channelID)
	return nil
}

func (g *fakeGateway) SetPermission(_ context.Context, channelID string, ow PermissionOverwrite) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.permissions[channelID] = append(g.permissions[channelID], ow)
	return nil
}

func (g *fakeGateway) SendMessage(_ context.Context, channelID string, msg OutboundMessage) error {
	g.mu.Lock()
	hook := g.onSend
	g.sent = append(g.sent, sentMessage{ChannelID: channelID, Msg: msg})
	g.mu.Unlock()
	if hook != nil {
		return hook(channelID, msg)
	}
	return nil
}

func (g *fakeGateway) messagesIn(channelID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, s := range g.sent {
		if s.ChannelID == channelID {
			out = append(out, s.Msg.Content)
		}
	}
	return out
}

func (g *fakeGateway) deletedChannels() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.deleted...)
}

type fakeConfigs struct {
	mu      sync.Mutex
	configs map[string]*Config
	err     error
}

func (f *fakeConfigs) DefenceConfig(_ context.Context, communityID string) (*Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cfg, ok := f.configs[communityID]
	if !ok {
		return nil, ErrConfigMissing
	}
	cp := *cfg
	return &cp, nil
}

type fakeDirectory map[[2]int]directory.Village

func (d fakeDirectory) FindVillageAt(x, y int) (directory.Village, bool) {
	v, ok := d[[2]int{x, y}]
	return v, ok
}

type memCalls struct {
	mu      sync.Mutex
	calls   map[string]Call
	removes int
}

func newMemCalls(calls ...Call) *memCalls {
	m := &memCalls{calls: make(map[string]Call)}
	for _, c := range calls {
		m.calls[c.ChannelID] = c
	}
	return m
}

func (m *memCalls) Add(call Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[call.ChannelID] = call.Clone()
	return nil
}

func (m *memCalls) Get(id string) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	return c.Clone(), ok
}

func (m *memCalls) AppendMessage(id string, msg LogMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return errors.New("unknown channel")
	}
	c.Messages = append(c.Messages, msg)
	m.calls[id] = c
	return nil
}

func (m *memCalls) Update(id string, fn func(*Call)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return errors.New("unknown channel")
	}
	fn(&c)
	m.calls[id] = c
	return nil
}

func (m *memCalls) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.calls[id]; ok {
		delete(m.calls, id)
		m.removes++
	}
	return nil
}

func (m *memCalls) LoadAll() ([]Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

type memLedger struct {
	mu   sync.Mutex
	subs map[string][]Submission
}

func newMemLedger() *memLedger {
	return &memLedger{subs: make(map[string][]Submission)}
}

func (l *memLedger) Append(id string, sub Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs[id] = append(l.subs[id], sub)
	return nil
}

func (l *memLedger) Purge(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subs, id)
	return nil
}

func (l *memLedger) Channels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.subs))
	for id := range l.subs {
		out = append(out, id)
	}
	return out
}

func (l *memLedger) list(id string) []Submission {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Submission(nil), l.subs[id]...)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEvents) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
