package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedealize/sourcing-engine/internal/config"
)

func TestBuildMessagePlain(t *testing.T) {
	cfg := config.MailerConfig{From: "sourcing@wedealize.com", SenderName: "WeDealize Sourcing Team"}

	msg := string(buildMessage(cfg, "sales@supplierx.com", "Product info request", "Hello", "", "abc@host"))

	assert.Contains(t, msg, "To: sales@supplierx.com\r\n")
	assert.Contains(t, msg, "Message-ID: <abc@host>\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(msg, "Hello"))
	assert.NotContains(t, msg, "multipart")
}

func TestBuildMessageAlternative(t *testing.T) {
	cfg := config.MailerConfig{From: "sourcing@wedealize.com", SenderName: "WeDealize Sourcing Team"}

	msg := string(buildMessage(cfg, "sales@supplierx.com", "Subject", "plain part", "<p>html part</p>", "abc@host"))

	assert.Contains(t, msg, "multipart/alternative")
	assert.Contains(t, msg, "plain part")
	assert.Contains(t, msg, "<p>html part</p>")
	require.Equal(t, 2, strings.Count(msg, "--"+altBoundary+"\r\n"))
	assert.Contains(t, msg, "--"+altBoundary+"--")
}

func TestBuildMessageEncodesUnicodeSubject(t *testing.T) {
	cfg := config.MailerConfig{From: "sourcing@wedealize.com", SenderName: "WeDealize"}

	msg := string(buildMessage(cfg, "a@b.com", "상품 정보 요청", "body", "", "id@host"))

	assert.Contains(t, msg, "Subject: =?utf-8?q?")
}
