package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

// IncomingMessage is a raw consumed Kafka message plus its parsed payload.
type IncomingMessage struct {
	Key       string            `json:"key"`
	Value     []byte            `json:"value"`
	Headers   map[string]string `json:"headers"`
	Partition int               `json:"partition"`
	Offset    int64             `json:"offset"`
	Timestamp time.Time         `json:"timestamp"`
	Topic     string            `json:"topic"`

	Mention *RoleMentionMessage `json:"-"`
}

// RoleMentionMessage is the payload the document extractor publishes for each
// batch of role mentions it finds.
type RoleMentionMessage struct {
	TenantID       string    `json:"tenant_id"`
	RoleName       string    `json:"role_name"`
	DocumentID     string    `json:"document_id,omitempty"`
	MentionCount   int       `json:"mention_count"`
	DocumentCount  int       `json:"document_count"`
	StatementCount int       `json:"statement_count"`
	ExtractedAt    time.Time `json:"extracted_at,omitempty"`
}

// ParseMention decodes the payload as a role mention message.
func (m *IncomingMessage) ParseMention() error {
	var mention RoleMentionMessage
	if err := json.Unmarshal(m.Value, &mention); err != nil {
		return fmt.Errorf("failed to parse role mention message: %w", err)
	}
	if mention.TenantID == "" {
		mention.TenantID = m.Headers["tenant_id"]
	}
	if mention.RoleName == "" {
		return fmt.Errorf("role mention message has no role_name")
	}
	if mention.MentionCount == 0 {
		mention.MentionCount = 1
	}
	m.Mention = &mention
	return nil
}
