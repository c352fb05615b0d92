package webserver

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/defcalls/src/defence"
)

// SubmissionLister returns pending submissions keyed by channel id.
type SubmissionLister interface {
	All() map[string][]defence.Submission
}

type pendingCall struct {
	ChannelID        string              `json:"channelId"`
	Coordinates      defence.Coordinates `json:"coordinates"`
	Amount           int64               `json:"amount"`
	Time             string              `json:"time"`
	Type             defence.Kind        `json:"type"`
	SubmittedBy      string              `json:"submittedBy"`
	SubmittedAt      time.Time           `json:"submittedAt"`
	TotalSubmissions int                 `json:"totalSubmissions"`
}

// Submissions serves GET /defence-submissions.
type Submissions struct {
	ledger SubmissionLister
}

func NewSubmissions(ledger SubmissionLister) Submissions {
	return Submissions{ledger: ledger}
}

func (s Submissions) List(c *gin.Context) {
	out := summarize(s.ledger.All())
	c.JSON(http.StatusOK, gin.H{
		"totalChannels": len(out),
		"submissions":   out,
	})
}

// summarize reports the latest submission of every channel that has any,
// ordered by channel id.
func summarize(all map[string][]defence.Submission) []pendingCall {
	out := make([]pendingCall, 0, len(all))
	for channelID, subs := range all {
		if len(subs) == 0 {
			continue
		}
		latest := subs[len(subs)-1]
		declared := latest.DeclaredTime
		if declared == "" {
			declared = "N/A"
		}
		by := latest.DisplayName
		if by == "" {
			by = "Unknown"
		}
		out = append(out, pendingCall{
			ChannelID:        channelID,
			Coordinates:      latest.Coordinates,
			Amount:           latest.Units,
			Time:             declared,
			Type:             latest.Kind,
			SubmittedBy:      by,
			SubmittedAt:      latest.SubmittedAt,
			TotalSubmissions: len(subs),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}
