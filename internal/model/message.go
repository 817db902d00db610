package model

import (
	"regexp"
	"strings"
	"time"
)

// Attachment is one file blob delivered with an inbound message.
type Attachment struct {
	Filename    string `json:"filename"`
	Path        string `json:"path,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Data        []byte `json:"-"`
}

// InboundMessage is one message delivered by the messaging collaborator,
// independent of transport.
type InboundMessage struct {
	ID               string       `json:"id"`
	Sender           string       `json:"sender"`
	Subject          string       `json:"subject"`
	Body             string       `json:"body"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	ReceivedAt       time.Time    `json:"received_at"`
	MatchedRequestID string       `json:"matched_request_id,omitempty"`
}

var addrAngleRe = regexp.MustCompile(`<([^>]+)>`)

// SenderAddress extracts the bare address from the sender header, handling
// the "Display Name <addr@host>" form, and lowercases it for matching.
func (m *InboundMessage) SenderAddress() string {
	s := strings.TrimSpace(m.Sender)
	if match := addrAngleRe.FindStringSubmatch(s); match != nil {
		s = match[1]
	}
	return strings.ToLower(strings.TrimSpace(s))
}
