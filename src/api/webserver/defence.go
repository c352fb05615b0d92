package webserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stake-plus/defcalls/src/defence"
	"go.uber.org/zap"
)

// CallCreator opens defence calls.
type CallCreator interface {
	CreateCall(ctx context.Context, req defence.CallRequest) (*defence.Call, error)
}

type defenceRequest struct {
	X        *int   `json:"x" validate:"required"`
	Y        *int   `json:"y" validate:"required"`
	Amount   *int   `json:"amount" validate:"required,min=0"`
	Time     string `json:"time" validate:"clocktime"`
	Standing bool   `json:"standing"`
}

// Defences serves POST /defence.
type Defences struct {
	calls     CallCreator
	community string
	validate  *validator.Validate
	log       *zap.Logger
}

func NewDefences(calls CallCreator, community string, v *validator.Validate, log *zap.Logger) Defences {
	return Defences{calls: calls, community: community, validate: v, log: log}
}

func (d Defences) Create(c *gin.Context) {
	var req defenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "❌ Invalid request body."})
		return
	}
	if err := d.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": validationMessage(err)})
		return
	}

	kind := defence.KindNormal
	if req.Standing {
		kind = defence.KindStanding
	}
	call, err := d.calls.CreateCall(c.Request.Context(), defence.CallRequest{
		CommunityID: d.community,
		Requester:   defence.Requester{Name: "api", Source: defence.SourceAPI},
		Coordinates: defence.Coordinates{X: *req.X, Y: *req.Y},
		Amount:      *req.Amount,
		Deadline:    req.Time,
		Kind:        kind,
	})
	if err != nil {
		status, msg := defenceError(err)
		if status >= http.StatusInternalServerError {
			d.log.Error("defence call failed", zap.Int("x", *req.X), zap.Int("y", *req.Y), zap.Error(err))
		}
		c.JSON(status, gin.H{"message": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "✅ Created defence channel: " + call.ChannelName})
}

func defenceError(err error) (int, string) {
	switch {
	case errors.Is(err, defence.ErrTimeRequired):
		return http.StatusBadRequest, "❌ Time is required for normal defence calls."
	case errors.Is(err, defence.ErrInvalidTimeFormat):
		return http.StatusBadRequest, "❌ Invalid time format. Use HH:mm in BST."
	case errors.Is(err, defence.ErrInvalidAmount):
		return http.StatusBadRequest, "❌ Amount must not be negative."
	case errors.Is(err, defence.ErrConfigMissing):
		return http.StatusInternalServerError, "❌ Defence call configuration not found."
	default:
		return http.StatusInternalServerError, "❌ Failed to create defence channel."
	}
}
