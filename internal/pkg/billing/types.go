package billing

import "github.com/ManuelReschke/PaddleBilling/app/models"

// Payload is a decoded webhook body. Numbers are kept as json.Number.
type Payload map[string]any

// CustomDataEntry is one custom_data key with its value rendered as text.
type CustomDataEntry struct {
	Key   string
	Value string
}

// ExtractedTransaction is the typed view of a transaction.completed payload
// consumed by the entity repository. Missing fields hold their defaults.
type ExtractedTransaction struct {
	TransactionID       string
	ProviderCustomerID  string
	CustomerEmail       string
	CustomerName        string
	PriceID             string
	ProductName         string
	ProductDescription  *string
	UnitPriceMinorUnits int64
	CurrencyCode        string
	Status              string
	InvoiceURL          *string
	CustomData          []CustomDataEntry
	// RawCustomData is custom_data as received, handed to listeners untouched.
	RawCustomData map[string]any
}

// Outcome describes what the pipeline did with a delivery.
type Outcome string

const (
	// OutcomeDuplicate means the event id was already recorded; nothing happened.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeRecorded means the event was stored but needs no reconciliation.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeReconciled means entities were written and listeners notified.
	OutcomeReconciled Outcome = "reconciled"
)

// PurchaseCompleted is dispatched once per reconciled transaction.
type PurchaseCompleted struct {
	Purchase   *models.Purchase
	Customer   *models.Customer
	Product    *models.Product
	CustomData map[string]any
}

// WebhookReceived is dispatched to listeners registered for its event type.
type WebhookReceived struct {
	EventType string
	EventID   string
	Payload   Payload
}
