// Package worker consumes scored-transaction events and raises fraud
// alerts asynchronously, off the request path.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safepay-ai/safepay/internal/domain"
)

// Severity cutover: anything at or above this probability is a high
// severity alert, below it medium.
const highSeverityProbability = 0.7

// AlertWorker subscribes to scored-transaction events, persists an alert
// for each fraudulent one, and republishes it on the alert topic.
type AlertWorker struct {
	bus    domain.EventBus
	repo   domain.Repository
	logger *slog.Logger

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewAlertWorker creates a worker. It does not subscribe until Start.
func NewAlertWorker(bus domain.EventBus, repo domain.Repository, logger *slog.Logger) *AlertWorker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AlertWorker{
		bus:    bus,
		repo:   repo,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the scored-transaction topic.
func (w *AlertWorker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicTransactionScored, w.handleScored)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", domain.TopicTransactionScored, err)
	}
	w.subscriptions = append(w.subscriptions, sub)

	w.logger.Info("alert worker started", "topic", domain.TopicTransactionScored)
	return nil
}

// handleScored processes one scored-transaction event.
func (w *AlertWorker) handleScored(ctx context.Context, msg *domain.Message) error {
	var evt domain.ScoredEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		w.logger.Error("failed to parse scored event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if !evt.IsFraud {
		return nil
	}

	alert := &domain.Alert{
		ID:             uuid.New().String(),
		TransactionRef: evt.TransactionRef,
		AlertType:      "fraud_block",
		Severity:       severityFor(evt.FraudProbability),
		Description:    describeAlert(&evt),
		CreatedAt:      time.Now().UTC(),
	}

	if err := w.repo.SaveAlert(ctx, alert); err != nil {
		w.logger.Error("failed to save alert",
			"transaction_ref", evt.TransactionRef,
			"error", err,
		)
		return err
	}

	payload, _ := json.Marshal(alert)
	if err := w.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
		w.logger.Error("failed to publish alert",
			"alert_id", alert.ID,
			"error", err,
		)
	}

	w.logger.Info("fraud alert raised",
		"alert_id", alert.ID,
		"transaction_ref", evt.TransactionRef,
		"severity", alert.Severity,
		"probability", evt.FraudProbability,
	)

	return nil
}

func severityFor(probability float64) domain.AlertSeverity {
	if probability >= highSeverityProbability {
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}

func describeAlert(evt *domain.ScoredEvent) string {
	desc := fmt.Sprintf("blocked transfer of %.2f from %s to %s (probability %.1f%%)",
		evt.Amount, evt.SenderUPIID, evt.ReceiverUPIID, evt.FraudProbability*100)
	if len(evt.RiskFactors) > 0 {
		desc += ": " + evt.RiskFactors[0]
	}
	return desc
}

// Stop gracefully stops the worker.
func (w *AlertWorker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	w.logger.Info("alert worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *AlertWorker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
