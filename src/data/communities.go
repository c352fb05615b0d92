package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stake-plus/defcalls/src/defence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommunityConfig is the defence_configs row of one community.
type CommunityConfig struct {
	CommunityID         string   `gorm:"primaryKey;size:32"`
	ParentCategory      string   `gorm:"size:32"`
	CropCategory        string   `gorm:"size:32"`
	ViewRoles           []string `gorm:"serializer:json;type:text"`
	PingRoles           []string `gorm:"serializer:json;type:text"`
	CommandRoles        []string `gorm:"serializer:json;type:text"`
	LogChannel          string   `gorm:"size:32"`
	InitiatorLogChannel string   `gorm:"size:32"`
	UpdatedAt           time.Time
}

// TableName pins the table name.
func (CommunityConfig) TableName() string { return "defence_configs" }

func (r CommunityConfig) toDefence() *defence.Config {
	return &defence.Config{
		ParentCategory:      r.ParentCategory,
		CropCategory:        r.CropCategory,
		ViewRoles:           append([]string(nil), r.ViewRoles...),
		PingRoles:           append([]string(nil), r.PingRoles...),
		CommandRoles:        append([]string(nil), r.CommandRoles...),
		LogChannel:          r.LogChannel,
		InitiatorLogChannel: r.InitiatorLogChannel,
	}
}

func communityConfigFrom(communityID string, cfg *defence.Config) CommunityConfig {
	return CommunityConfig{
		CommunityID:         communityID,
		ParentCategory:      cfg.ParentCategory,
		CropCategory:        cfg.CropCategory,
		ViewRoles:           cfg.ViewRoles,
		PingRoles:           cfg.PingRoles,
		CommandRoles:        cfg.CommandRoles,
		LogChannel:          cfg.LogChannel,
		InitiatorLogChannel: cfg.InitiatorLogChannel,
	}
}

// ConfigStore is a read-through cache over defence_configs.
type ConfigStore struct {
	db    *gorm.DB
	mu    sync.RWMutex
	cache map[string]*defence.Config
}

var _ defence.ConfigStore = (*ConfigStore)(nil)

// NewConfigStore returns a store backed by db.
func NewConfigStore(db *gorm.DB) *ConfigStore {
	return &ConfigStore{db: db, cache: make(map[string]*defence.Config)}
}

// DefenceConfig returns a copy of the community's settings or
// defence.ErrConfigMissing.
func (s *ConfigStore) DefenceConfig(ctx context.Context, communityID string) (*defence.Config, error) {
	s.mu.RLock()
	cached, ok := s.cache[communityID]
	s.mu.RUnlock()
	if ok {
		return copyConfig(cached), nil
	}

	var row CommunityConfig
	err := s.db.WithContext(ctx).Where("community_id = ?", communityID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, defence.ErrConfigMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load defence config %s: %w", communityID, err)
	}

	cfg := row.toDefence()
	s.mu.Lock()
	s.cache[communityID] = cfg
	s.mu.Unlock()
	return copyConfig(cfg), nil
}

// Save upserts the community's settings and refreshes the cache.
func (s *ConfigStore) Save(ctx context.Context, communityID string, cfg *defence.Config) error {
	row := communityConfigFrom(communityID, cfg)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save defence config %s: %w", communityID, err)
	}
	s.mu.Lock()
	s.cache[communityID] = row.toDefence()
	s.mu.Unlock()
	return nil
}

func copyConfig(cfg *defence.Config) *defence.Config {
	cp := *cfg
	cp.ViewRoles = append([]string(nil), cfg.ViewRoles...)
	cp.PingRoles = append([]string(nil), cfg.PingRoles...)
	cp.CommandRoles = append([]string(nil), cfg.CommandRoles...)
	return &cp
}
