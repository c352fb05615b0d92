package webserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stake-plus/defcalls/src/data"
	"github.com/stake-plus/defcalls/src/defence"
	"github.com/stake-plus/defcalls/src/discord"
	"go.uber.org/zap"
)

// OTPStore issues and checks one-time codes keyed by server name.
type OTPStore interface {
	Issue(ctx context.Context, subject string) (string, error)
	Verify(ctx context.Context, subject, code string) error
}

// MemberDirectory finds guild members and reaches them by DM.
type MemberDirectory interface {
	FindMember(ctx context.Context, name string) (discord.Member, error)
	SendDM(ctx context.Context, userID, content string) error
}

type verifyRequest struct {
	ServerName string `json:"serverName" validate:"required"`
	OTP        string `json:"otp"`
}

// Auth serves POST /verify: a DM'd one-time code exchanged for a JWT.
type Auth struct {
	otp       OTPStore
	members   MemberDirectory
	configs   defence.ConfigStore
	community string
	jwtSecret []byte
	validate  *validator.Validate
	log       *zap.Logger
	now       func() time.Time
}

func NewAuth(otp OTPStore, members MemberDirectory, configs defence.ConfigStore, community string, secret []byte, v *validator.Validate, log *zap.Logger) Auth {
	return Auth{
		otp:       otp,
		members:   members,
		configs:   configs,
		community: community,
		jwtSecret: secret,
		validate:  v,
		log:       log,
		now:       time.Now,
	}
}

func (a Auth) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "❌ Invalid request body."})
		return
	}
	if err := a.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": validationMessage(err)})
		return
	}
	ctx := c.Request.Context()
	name := strings.TrimSpace(req.ServerName)

	// Both legs resolve the member; the token carries its current id.
	member, err := a.members.FindMember(ctx, name)
	if errors.Is(err, discord.ErrMemberNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found in server", "searchedFor": strings.ToLower(name)})
		return
	}
	if err != nil {
		a.log.Error("member lookup failed", zap.String("serverName", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Verification failed"})
		return
	}

	if req.OTP != "" {
		a.exchange(c, name, member, req.OTP)
		return
	}

	cfg, err := a.configs.DefenceConfig(ctx, a.community)
	if err != nil && !errors.Is(err, defence.ErrConfigMissing) {
		a.log.Error("config lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Verification failed"})
		return
	}
	if cfg == nil || len(cfg.CommandRoles) == 0 || !cfg.AllowsRequester(member.Roles) {
		c.JSON(http.StatusForbidden, gin.H{"message": "❌ You are not authorized to use verification. Contact your leadership."})
		return
	}

	code, err := a.otp.Issue(ctx, name)
	if err != nil {
		a.log.Error("otp issue failed", zap.String("serverName", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Verification failed"})
		return
	}
	dm := "🔐 Your verification OTP is: **" + code + "**\nThis code will expire in 5 minutes."
	if err := a.members.SendDM(ctx, member.ID, dm); err != nil {
		a.log.Warn("otp dm failed", zap.String("user", member.ID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unable to send DM. Please ensure your DMs are open for this server."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "✅ OTP sent to your Discord DM"})
}

func (a Auth) exchange(c *gin.Context, name string, member discord.Member, code string) {
	if err := a.otp.Verify(c.Request.Context(), name, code); err != nil {
		if !errors.Is(err, data.ErrOTPInvalid) {
			a.log.Error("otp verify failed", zap.String("serverName", name), zap.Error(err))
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid OTP"})
		return
	}
	token, err := issueJWT(name, member.ID, a.jwtSecret, a.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Verification failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
