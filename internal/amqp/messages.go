package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budgetmalin/internal/analytics"
	"budgetmalin/internal/core"
)

// Routing keys published on the exchange.
const (
	RoutingTransactionSync   = "transaction.sync"
	RoutingTransactionDelete = "transaction.delete"
	RoutingBudgetAlert       = "budget.alert"
)

// TransactionMessage carries a full transaction snapshot so the consumer
// can mirror it without reading the store back.
type TransactionMessage struct {
	Action      string           `json:"action"`
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

// BudgetAlertMessage reports a category that crossed a budget threshold.
type BudgetAlertMessage struct {
	Month      core.Month       `json:"month"`
	Category   string           `json:"category"`
	Spent      core.Money       `json:"spent"`
	Limit      core.Money       `json:"limit"`
	Percentage float64          `json:"percentage"`
	Status     analytics.Status `json:"status"`
	Timestamp  time.Time        `json:"timestamp"`
}

func NewTransactionMessage(action string, t core.Transaction) *TransactionMessage {
	return &TransactionMessage{Action: action, Transaction: t, Timestamp: time.Now()}
}

func NewBudgetAlertMessage(month core.Month, s analytics.CategoryStatus) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		Month:      month,
		Category:   s.Category,
		Spent:      s.Spent,
		Limit:      s.Limit,
		Percentage: s.Percentage,
		Status:     s.Status,
		Timestamp:  time.Now(),
	}
}

func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMessageFromJSON decodes a message and rejects unknown actions.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Action {
	case RoutingTransactionSync, RoutingTransactionDelete:
	default:
		return nil, fmt.Errorf("unknown transaction action %q", msg.Action)
	}
	if msg.Transaction.ID == "" {
		return nil, fmt.Errorf("transaction message without id")
	}
	return &msg, nil
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Category == "" {
		return nil, fmt.Errorf("budget alert without category")
	}
	return &msg, nil
}
