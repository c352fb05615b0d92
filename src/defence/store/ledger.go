package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/stake-plus/defcalls/src/defence"
	"go.uber.org/zap"
)

// LedgerFile is the ledger's file name inside the state directory.
const LedgerFile = "defence-submissions.json"

type ledgerDocument struct {
	Submissions map[string][]defence.Submission `json:"submissions"`
}

var _ defence.SubmissionLedger = (*Ledger)(nil)

// Ledger holds the pledges recorded against calls that still listen.
type Ledger struct {
	mu   sync.Mutex
	doc  *document
	subs map[string][]defence.Submission
}

// OpenLedger loads path, starting empty when it is absent or corrupt.
func OpenLedger(path string, log *zap.Logger) (*Ledger, error) {
	l := &Ledger{doc: newDocument(path, log)}
	var doc ledgerDocument
	if err := l.doc.load(&doc); err != nil && !errors.Is(err, errCorrupt) {
		return nil, err
	}
	l.subs = doc.Submissions
	if l.subs == nil {
		l.subs = make(map[string][]defence.Submission)
	}
	return l, nil
}

// Append records sub under channelID.
func (l *Ledger) Append(channelID string, sub defence.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs[channelID] = append(l.subs[channelID], sub)
	return l.persist()
}

// Purge forgets every submission for channelID.
func (l *Ledger) Purge(channelID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.subs[channelID]; !ok {
		return nil
	}
	delete(l.subs, channelID)
	return l.persist()
}

// List returns the submissions for one channel.
func (l *Ledger) List(channelID string) []defence.Submission {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]defence.Submission(nil), l.subs[channelID]...)
}

// All returns a copy of the whole ledger.
func (l *Ledger) All() map[string][]defence.Submission {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string][]defence.Submission, len(l.subs))
	for id, subs := range l.subs {
		out[id] = append([]defence.Submission(nil), subs...)
	}
	return out
}

// Channels lists channel ids with at least one submission, sorted.
func (l *Ledger) Channels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.subs))
	for id := range l.subs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) persist() error {
	return l.doc.save(ledgerDocument{Submissions: l.subs})
}
