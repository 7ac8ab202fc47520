package events

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/internal/repositories/role"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// MentionIngestor applies extractor mention messages to the dictionary's
// mention bookkeeping. Mentions of roles not in the dictionary are dropped;
// they surface later through the adjudication endpoint instead.
type MentionIngestor struct {
	roles  role.RoleRepository
	logger ectologger.Logger
}

// NewMentionIngestor creates a new mention ingestor
func NewMentionIngestor(roles role.RoleRepository, logger ectologger.Logger) *MentionIngestor {
	return &MentionIngestor{
		roles:  roles,
		logger: logger,
	}
}

// Handle is the kafka.MessageHandler for the mentions topic.
func (m *MentionIngestor) Handle(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "events.MentionIngestor.Handle")
	defer span.End()

	mention := msg.Mention
	if mention == nil || mention.TenantID == "" {
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"offset": msg.Offset,
		}).Warn("dropping mention message without tenant")
		return nil
	}

	err := m.roles.IncrementMentionStats(ctx, mention.TenantID, mention.RoleName,
		mention.MentionCount, mention.DocumentCount, mention.StatementCount)
	if err != nil {
		return err
	}

	metrics.MentionsIngested.Inc()
	return nil
}
