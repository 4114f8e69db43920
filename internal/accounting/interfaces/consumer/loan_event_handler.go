// Package consumer runs the Kafka consumer that feeds loan events into the
// accounting journal.
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/wyfcoding/loanservicing/internal/accounting/application"
	"github.com/wyfcoding/loanservicing/internal/accounting/domain"
	"github.com/wyfcoding/loanservicing/pkg/logger"
	"github.com/wyfcoding/loanservicing/pkg/mq"
)

// LoanEventHandler consumes the loan events topic and posts journal entries.
type LoanEventHandler struct {
	consumer *mq.KafkaConsumer
	posting  *application.PostingService
}

func NewLoanEventHandler(consumer *mq.KafkaConsumer, posting *application.PostingService) *LoanEventHandler {
	return &LoanEventHandler{consumer: consumer, posting: posting}
}

// Run consumes until ctx is cancelled. Posting failures are logged and the
// message is dropped; the backfill job reposts anything missed, and posting
// is idempotent per event id.
func (h *LoanEventHandler) Run(ctx context.Context) error {
	logger.Info(ctx, "Loan event consumer started")
	for {
		msg, err := h.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				logger.Info(ctx, "Loan event consumer stopped")
				return nil
			}
			return err
		}

		var event domain.LoanEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error(ctx, "Failed to decode loan event, dropping",
				"topic", msg.Topic, "offset", msg.Offset, "error", err)
			continue
		}

		if err := h.posting.HandleLoanEvent(ctx, event); err != nil {
			logger.Error(ctx, "Failed to post loan event",
				"event_id", event.ID, "event_type", event.Type, "error", err)
		}
	}
}
