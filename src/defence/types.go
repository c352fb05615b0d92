// Package defence runs the defence call lifecycle: channel creation,
// pledge matching, reminders, expiry and restart recovery.
package defence

import (
	"time"
)

// Kind distinguishes the call flavours.
type Kind string

const (
	KindNormal   Kind = "normal"
	KindStanding Kind = "standing"
	KindCrop     Kind = "crop"
)

// Status is the persisted part of a call's state.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
)

// Origin tells whether a logged message is the bot's initial
// announcement or a response posted in the channel.
type Origin string

const (
	OriginInitial  Origin = "initial"
	OriginResponse Origin = "response"
)

// Coordinates locate the village a call is about.
type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// LogMessage is one entry of a call's message log.
type LogMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Origin    Origin    `json:"type"`
}

// Call is the durable record of a live defence call, keyed by channel id.
type Call struct {
	ChannelID   string       `json:"channelId"`
	ChannelName string       `json:"channelName,omitempty"`
	CommunityID string       `json:"communityId"`
	Kind        Kind         `json:"type"`
	Amount      int          `json:"amount"`
	Coordinates Coordinates  `json:"coordinates"`
	Deadline    string       `json:"time,omitempty"`
	AttackTime  *time.Time   `json:"attackTime,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	Status      Status       `json:"status,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	DeleteAt    *time.Time   `json:"deleteAt,omitempty"`
	Messages    []LogMessage `json:"messages"`
}

// IsOpen reports whether the call still accepts pledges. Records
// written without a status are open.
func (c *Call) IsOpen() bool {
	return c.Status != StatusCompleted
}

// EndsAt is the instant the channel should be gone: the post-completion
// deletion time for completed calls, the hard expiry otherwise.
func (c *Call) EndsAt() time.Time {
	if !c.IsOpen() && c.DeleteAt != nil {
		return *c.DeleteAt
	}
	return c.ExpiresAt
}

// Clone returns a deep copy safe to hand out of a store.
func (c Call) Clone() Call {
	out := c
	if c.AttackTime != nil {
		t := *c.AttackTime
		out.AttackTime = &t
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	if c.DeleteAt != nil {
		t := *c.DeleteAt
		out.DeleteAt = &t
	}
	if c.Messages != nil {
		out.Messages = append([]LogMessage(nil), c.Messages...)
	}
	return out
}

// Submission is a pledge recorded against an open call.
type Submission struct {
	Units        int64       `json:"units"`
	DeclaredTime string      `json:"time,omitempty"`
	UserID       string      `json:"userId"`
	DisplayName  string      `json:"username"`
	SubmittedAt  time.Time   `json:"submittedAt"`
	Coordinates  Coordinates `json:"coordinates"`
	ChannelID    string      `json:"channelId"`
	Kind         Kind        `json:"type"`
}

// Config is a community's defence settings, owned by the config store.
type Config struct {
	ParentCategory      string   `json:"parentCategory"`
	CropCategory        string   `json:"cropCategory,omitempty"`
	ViewRoles           []string `json:"viewRoles"`
	PingRoles           []string `json:"pingRoles"`
	CommandRoles        []string `json:"commandRoles,omitempty"`
	LogChannel          string   `json:"logChannel"`
	InitiatorLogChannel string   `json:"initiatorLogChannel"`
}

// AllowsRequester reports whether any of roles may open calls. An empty
// command role list admits everyone.
func (c *Config) AllowsRequester(roles []string) bool {
	if len(c.CommandRoles) == 0 {
		return true
	}
	for _, allowed := range c.CommandRoles {
		for _, role := range roles {
			if role == allowed {
				return true
			}
		}
	}
	return false
}

// Source identifies the surface a call request came through.
type Source string

const (
	SourceCommand Source = "command"
	SourceAPI     Source = "api"
)

// Requester is whoever asked for the call.
type Requester struct {
	ID     string
	Name   string
	Roles  []string
	Source Source
}

// CallRequest carries the inputs of CreateCall.
type CallRequest struct {
	CommunityID string
	Requester   Requester
	Coordinates Coordinates
	Amount      int
	Deadline    string
	Kind        Kind
}

// InboundMessage is a chat message delivered by the gateway.
type InboundMessage struct {
	ChannelID   string
	MessageID   string
	AuthorID    string
	DisplayName string
	Content     string
	Bot         bool
	Timestamp   time.Time
}
