package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	defencemodule "github.com/stake-plus/defcalls/src/actions/defence"
	"github.com/stake-plus/defcalls/src/api/webserver"
	sharedconfig "github.com/stake-plus/defcalls/src/config"
	shareddata "github.com/stake-plus/defcalls/src/data"
	"github.com/stake-plus/defcalls/src/directory"
	shareddiscord "github.com/stake-plus/defcalls/src/discord"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const snapshotFile = "map.json.zst"

// StartAll wires up enabled action modules and starts the manager.
// Modules start in order directory, defence bot, web API and stop in
// reverse.
func StartAll(ctx context.Context, db *gorm.DB, rdb *redis.Client, log *zap.Logger) (*Manager, error) {
	mgr := NewManager(log)

	defenceCfg := sharedconfig.LoadDefenceConfig(db)
	if !defenceCfg.Enabled {
		log.Info("defence module disabled via configuration")
		return mgr, mgr.Start(ctx)
	}

	dir := directory.NewService(directory.Config{
		MapSQLURL:    defenceCfg.MapSQLURL,
		SnapshotPath: defenceCfg.StatePath(snapshotFile),
		InitialDelay: 10 * time.Second,
	}, nil, log)
	if err := mgr.Add(dir); err != nil {
		return nil, fmt.Errorf("actions: add directory: %w", err)
	}

	defenceMod, err := defencemodule.NewModule(&defenceCfg, db, rdb, dir, log)
	if err != nil {
		return nil, fmt.Errorf("actions: init defence module: %w", err)
	}
	if err := mgr.Add(defenceMod); err != nil {
		return nil, fmt.Errorf("actions: add defence module: %w", err)
	}

	webCfg := sharedconfig.LoadWebConfig(db)
	if webCfg.Enabled {
		deps := webserver.Deps{
			Calls:       defenceMod.Manager(),
			Submissions: defenceMod.Ledger(),
			Members:     shareddiscord.NewMembers(defenceMod.Session(), webCfg.Base.GuildID),
			Configs:     defenceMod.Configs(),
			Log:         log,
		}
		if rdb != nil {
			deps.OTP = shareddata.NewOTPStore(rdb, 5*time.Minute)
		}
		if err := mgr.Add(webserver.NewModule(webCfg, deps)); err != nil {
			return nil, fmt.Errorf("actions: add web module: %w", err)
		}
	} else {
		log.Info("web module disabled via configuration")
	}

	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}
