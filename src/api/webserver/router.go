package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stake-plus/defcalls/src/config"
	"github.com/stake-plus/defcalls/src/defence"
	"go.uber.org/zap"
)

// Deps are the collaborators the routes call into.
type Deps struct {
	Calls       CallCreator
	Submissions SubmissionLister
	OTP         OTPStore
	Members     MemberDirectory
	Configs     defence.ConfigStore
	Log         *zap.Logger
}

// New builds the API router.
func New(cfg config.WebConfig, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	attachRoutes(r, cfg, deps, limits{
		defence: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		verify:  NewRateLimiter(cfg.VerifyLimit, cfg.RateWindow),
	})
	return r
}

// limits holds one sliding window per rate-limited route.
type limits struct {
	defence *RateLimiter
	verify  *RateLimiter
}

func attachRoutes(r *gin.Engine, cfg config.WebConfig, deps Deps, lim limits) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	// Forwarded headers count only from listed proxies; otherwise the
	// limiter keys on the peer address.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, trusting none", zap.Strings("proxies", cfg.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	corsCfg := cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	secret := []byte(cfg.JWTSecret)
	v := NewValidator()
	defH := NewDefences(deps.Calls, cfg.Base.GuildID, v, log)
	r.POST("/defence", RateLimitMiddleware(lim.defence), defH.Create)

	if deps.OTP != nil && deps.Members != nil && deps.Configs != nil && len(secret) > 0 {
		authH := NewAuth(deps.OTP, deps.Members, deps.Configs, cfg.Base.GuildID, secret, v, log)
		r.POST("/verify", RateLimitMiddleware(lim.verify), authH.Verify)
	} else {
		log.Warn("verification disabled: missing collaborators or jwt secret")
	}

	if deps.Submissions != nil && len(secret) > 0 {
		subH := NewSubmissions(deps.Submissions)
		secured := r.Group("/", JWTMiddleware(secret))
		secured.GET("/defence-submissions", subH.List)
	}
}
