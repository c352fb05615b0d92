package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stake-plus/defcalls/src/defence"
	"go.uber.org/zap"
)

// RegistryFile is the registry's file name inside the state directory.
const RegistryFile = "defence-channels.json"

var _ defence.CallStore = (*Registry)(nil)

// Registry is the durable set of live calls keyed by channel id.
type Registry struct {
	mu    sync.Mutex
	doc   *document
	order []string
	calls map[string]defence.Call
}

// OpenRegistry loads path, starting empty when it is absent or corrupt.
func OpenRegistry(path string, log *zap.Logger) (*Registry, error) {
	r := &Registry{
		doc:   newDocument(path, log),
		calls: make(map[string]defence.Call),
	}
	var records []defence.Call
	if err := r.doc.load(&records); err != nil && !errors.Is(err, errCorrupt) {
		return nil, err
	}
	for _, c := range records {
		if c.ChannelID == "" {
			continue
		}
		if _, dup := r.calls[c.ChannelID]; !dup {
			r.order = append(r.order, c.ChannelID)
		}
		r.calls[c.ChannelID] = c
	}
	return r, nil
}

// Add stores call, replacing any record with the same channel id.
func (r *Registry) Add(call defence.Call) error {
	if call.ChannelID == "" {
		return errors.New("store: call has no channel id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[call.ChannelID]; !ok {
		r.order = append(r.order, call.ChannelID)
	}
	r.calls[call.ChannelID] = call.Clone()
	return r.persist()
}

// Get returns a copy of the record for channelID.
func (r *Registry) Get(channelID string) (defence.Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[channelID]
	if !ok {
		return defence.Call{}, false
	}
	return c.Clone(), true
}

// AppendMessage adds msg to the record's message log.
func (r *Registry) AppendMessage(channelID string, msg defence.LogMessage) error {
	return r.Update(channelID, func(c *defence.Call) {
		c.Messages = append(c.Messages, msg)
	})
}

// Update applies fn to the record for channelID and persists it.
func (r *Registry) Update(channelID string, fn func(*defence.Call)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[channelID]
	if !ok {
		return fmt.Errorf("store: no call for channel %s", channelID)
	}
	fn(&c)
	r.calls[channelID] = c
	return r.persist()
}

// Remove drops the record. Unknown ids are ignored without a write.
func (r *Registry) Remove(channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[channelID]; !ok {
		return nil
	}
	delete(r.calls, channelID)
	for i, id := range r.order {
		if id == channelID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return r.persist()
}

// LoadAll returns every record in insertion order.
func (r *Registry) LoadAll() ([]defence.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

// Prune removes every record whose end time is not after now and
// returns their channel ids.
func (r *Registry) Prune(now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pruned []string
	kept := r.order[:0]
	for _, id := range r.order {
		c := r.calls[id]
		if c.EndsAt().After(now) {
			kept = append(kept, id)
			continue
		}
		delete(r.calls, id)
		pruned = append(pruned, id)
	}
	r.order = kept
	if len(pruned) == 0 {
		return nil, nil
	}
	return pruned, r.persist()
}

func (r *Registry) snapshot() []defence.Call {
	out := make([]defence.Call, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.calls[id].Clone())
	}
	return out
}

func (r *Registry) persist() error {
	return r.doc.save(r.snapshot())
}
