// internal/domain/call/entity.go
package call

import (
	"strings"
	"time"
)

type Result string

const (
	ResultSaleClosed  Result = "SALE_CLOSED"
	ResultRefused     Result = "REFUSED"
	ResultVoicemail   Result = "VOICEMAIL"
	ResultRescheduled Result = "RESCHEDULED"
)

func ParseResult(raw string) (Result, bool) {
	switch r := Result(strings.ToUpper(strings.TrimSpace(raw))); r {
	case ResultSaleClosed, ResultRefused, ResultVoicemail, ResultRescheduled:
		return r, true
	}
	return "", false
}

// Call is an append-only telesales log entry.
type Call struct {
	ID         int64      `json:"id" db:"id"`
	AgentID    int64      `json:"agent_id" db:"agent_id"`
	CustomerID int64      `json:"customer_id" db:"customer_id"`
	Result     Result     `json:"result" db:"result"`
	Note       string     `json:"note" db:"note"`
	FollowUpAt *time.Time `json:"follow_up_at,omitempty" db:"follow_up_at"`
	CalledAt   time.Time  `json:"called_at" db:"called_at"`
}

type CallView struct {
	Call
	AgentName    string `json:"agent_name"`
	CustomerName string `json:"customer_name"`
}
