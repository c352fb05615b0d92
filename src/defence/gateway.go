package defence

import (
	"context"
	"time"

	"github.com/stake-plus/defcalls/src/directory"
)

// Permission is a gateway-neutral channel permission bit.
type Permission int64

const (
	PermissionView Permission = 1 << iota
	PermissionSend
	PermissionReadHistory
)

// EveryoneRole addresses the community's default role in an overwrite.
const EveryoneRole = ""

// PermissionOverwrite replaces a role's allow/deny pair on a channel.
type PermissionOverwrite struct {
	RoleID string
	Allow  Permission
	Deny   Permission
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	CommunityID string
	Name        string
	ParentID    string
	Overwrites  []PermissionOverwrite
}

// Channel is what the gateway hands back after creation.
type Channel struct {
	ID   string
	Name string
}

// OutboundMessage is a message to post. MentionRoles are the only
// mentions the gateway may resolve.
type OutboundMessage struct {
	Content      string
	MentionRoles []string
}

// Gateway is the chat platform as seen by the engine.
type Gateway interface {
	CreateChannel(ctx context.Context, spec ChannelSpec) (Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	SetPermission(ctx context.Context, channelID string, overwrite PermissionOverwrite) error
	SendMessage(ctx context.Context, channelID string, msg OutboundMessage) error
}

// Directory resolves coordinates to a village for channel naming.
type Directory interface {
	FindVillageAt(x, y int) (directory.Village, bool)
}

// ConfigStore returns a community's settings or ErrConfigMissing.
type ConfigStore interface {
	DefenceConfig(ctx context.Context, communityID string) (*Config, error)
}

// CallStore is the channel registry.
type CallStore interface {
	Add(call Call) error
	Get(channelID string) (Call, bool)
	AppendMessage(channelID string, msg LogMessage) error
	Update(channelID string, fn func(*Call)) error
	Remove(channelID string) error
	LoadAll() ([]Call, error)
}

// SubmissionLedger keeps pledges for calls that are still listening.
type SubmissionLedger interface {
	Append(channelID string, sub Submission) error
	Purge(channelID string) error
	Channels() []string
}

// EventType names a lifecycle transition published to EventPublisher.
type EventType string

const (
	EventCreated   EventType = "created"
	EventPledged   EventType = "pledged"
	EventCompleted EventType = "completed"
	EventExpired   EventType = "expired"
	EventDeleted   EventType = "deleted"
)

// Event is a lifecycle notification for downstream consumers.
type Event struct {
	Type        EventType
	ChannelID   string
	CommunityID string
	Kind        Kind
	Amount      int
	Coordinates Coordinates
	At          time.Time
	Submission  *Submission
}

// EventPublisher receives lifecycle events. Publishing is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}
