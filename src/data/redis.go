package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/defcalls/src/defence"
	"golang.org/x/crypto/bcrypt"
)

// EventStream is the redis stream lifecycle events are appended to.
const EventStream = "defence.events"

// MustRedis opens a client from a redis:// URL or panics.
func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		panic(err)
	}
	return redis.NewClient(opt)
}

// ErrOTPInvalid is returned when a code is unknown, expired or wrong.
var ErrOTPInvalid = errors.New("otp invalid or expired")

// OTPStore keeps one-time verification codes, hashed, with a TTL.
type OTPStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOTPStore returns a store whose codes live for ttl.
func NewOTPStore(rdb *redis.Client, ttl time.Duration) *OTPStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OTPStore{rdb: rdb, ttl: ttl}
}

// Issue creates a fresh code for subject, replacing any pending one.
func (s *OTPStore) Issue(ctx context.Context, subject string) (string, error) {
	code := newOTPCode()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, otpKey(subject), hash, s.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks code for subject and consumes it on success.
func (s *OTPStore) Verify(ctx context.Context, subject, code string) error {
	hash, err := s.rdb.Get(ctx, otpKey(subject)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrOTPInvalid
	}
	if err != nil {
		return err
	}
	if !otpMatches(hash, code) {
		return ErrOTPInvalid
	}
	return s.rdb.Del(ctx, otpKey(subject)).Err()
}

func otpKey(subject string) string {
	return "defcalls:otp:" + strings.ToLower(subject)
}

func newOTPCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func otpMatches(hash []byte, code string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(strings.ToUpper(strings.TrimSpace(code)))) == nil
}

// EventPublisher appends lifecycle events to EventStream.
type EventPublisher struct {
	rdb    *redis.Client
	maxLen int64
}

var _ defence.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher caps the stream at roughly maxLen entries.
func NewEventPublisher(rdb *redis.Client, maxLen int64) *EventPublisher {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &EventPublisher{rdb: rdb, maxLen: maxLen}
}

// Publish implements defence.EventPublisher.
func (p *EventPublisher) Publish(ctx context.Context, ev defence.Event) error {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: EventStream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: eventValues(ev),
	}).Err()
}

func eventValues(ev defence.Event) map[string]interface{} {
	values := map[string]interface{}{
		"id":        uuid.NewString(),
		"type":      string(ev.Type),
		"channel":   ev.ChannelID,
		"community": ev.CommunityID,
		"kind":      string(ev.Kind),
		"amount":    ev.Amount,
		"x":         ev.Coordinates.X,
		"y":         ev.Coordinates.Y,
		"time":      ev.At.Unix(),
	}
	if sub := ev.Submission; sub != nil {
		values["user_id"] = sub.UserID
		values["username"] = sub.DisplayName
		values["units"] = sub.Units
		values["declared_time"] = sub.DeclaredTime
		values["submitted_at"] = fmt.Sprintf("%d", sub.SubmittedAt.Unix())
	}
	return values
}
