package model

import "time"

// FollowupStatus tracks a follow-up request through its lifecycle.
//
// PENDING → SCHEDULED → SENT → {REPLIED, RECEIVED, BOUNCED, FAILED}
// SENT → FOLLOWUP_SENT → (ages like SENT) until a terminal state or the
// attempt cap closes the request. BOUNCED is recorded from delivery
// feedback reported by the messaging collaborator; no in-process send
// path produces it.
type FollowupStatus string

const (
	StatusPending      FollowupStatus = "pending"
	StatusScheduled    FollowupStatus = "scheduled"
	StatusSent         FollowupStatus = "sent"
	StatusFollowupSent FollowupStatus = "followup_sent"
	StatusReplied      FollowupStatus = "replied"
	StatusReceived     FollowupStatus = "received"
	StatusBounced      FollowupStatus = "bounced"
	StatusFailed       FollowupStatus = "failed"
	StatusClosed       FollowupStatus = "closed"
)

// IsOpen reports whether a request in this status still counts against the
// one-open-request-per-tier invariant.
func (s FollowupStatus) IsOpen() bool {
	switch s {
	case StatusScheduled, StatusSent, StatusFollowupSent:
		return true
	}
	return false
}

// IsTerminal reports whether the request reached a final state.
func (s FollowupStatus) IsTerminal() bool {
	switch s {
	case StatusReplied, StatusReceived, StatusClosed:
		return true
	}
	return false
}

// AwaitingReply reports whether the request has been dispatched and a reply
// can still be matched against it.
func (s FollowupStatus) AwaitingReply() bool {
	return s == StatusSent || s == StatusFollowupSent
}

// MaxFollowupAttempts caps the number of no-response re-sends per request.
const MaxFollowupAttempts = 3

// FollowupRequest is one outbound request for missing supplier data. It is
// created by the planner and mutated only by the planner and the reply
// matcher; every status change is a single atomic store update.
type FollowupRequest struct {
	ID         string              `json:"id"`
	SupplierID string              `json:"supplier_id"`
	Address    string              `json:"address"`
	Tier       Tier                `json:"tier"`
	Channel    string              `json:"channel"`
	Groups     []MissingFieldGroup `json:"groups"`
	Locale     string              `json:"locale"`
	Subject    string              `json:"subject"`
	Message    string              `json:"message"`

	Status       FollowupStatus `json:"status"`
	ScheduledAt  time.Time      `json:"scheduled_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	AttemptCount int            `json:"attempt_count"`

	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	ReplyReceivedAt   *time.Time `json:"reply_received_at,omitempty"`
	ReplySnippet      string     `json:"reply_snippet,omitempty"`
	AttachmentPaths   []string   `json:"attachment_paths,omitempty"`
	Error             string     `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
