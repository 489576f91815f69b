package models

import "time"

// Quotation statuses.
const (
	QuotationStatusDraft    = "draft"
	QuotationStatusSent     = "sent"
	QuotationStatusAccepted = "accepted"
	QuotationStatusRejected = "rejected"
	QuotationStatusExpired  = "expired"
)

// CrewRequirement maps a role to the number of people the quotation
// promises per event day. Roles absent from the map require nobody.
type CrewRequirement map[Role]int

// Total returns the total number of crew slots required.
func (c CrewRequirement) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Quotation is a priced offer for an event, including the crew the firm
// commits to field.
type Quotation struct {
	ID         int64           `json:"id"`
	FirmID     int64           `json:"firm_id"`
	ClientID   int64           `json:"client_id"`
	EventID    *int64          `json:"event_id,omitempty"`
	Number     string          `json:"number"` // unique human-facing reference
	Amount     float64         `json:"amount"`
	Crew       CrewRequirement `json:"crew"`
	Status     string          `json:"status"`
	ValidUntil time.Time       `json:"valid_until"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Invoice statuses.
const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusIssued  = "issued"
	InvoiceStatusPartial = "partial"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusVoid    = "void"
)

// Invoice bills a client for an event.
type Invoice struct {
	ID        int64     `json:"id"`
	FirmID    int64     `json:"firm_id"`
	ClientID  int64     `json:"client_id"`
	EventID   int64     `json:"event_id"`
	Number    string    `json:"number"`
	Amount    float64   `json:"amount"`
	DueDate   time.Time `json:"due_date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Payment records money received against an invoice or event.
type Payment struct {
	ID        int64     `json:"id"`
	FirmID    int64     `json:"firm_id"`
	InvoiceID *int64    `json:"invoice_id,omitempty"`
	EventID   *int64    `json:"event_id,omitempty"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"` // cash, bank_transfer, gateway
	Reference string    `json:"reference"`
	PaidAt    time.Time `json:"paid_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expense records money spent by the firm, optionally tied to an event.
type Expense struct {
	ID          int64     `json:"id"`
	FirmID      int64     `json:"firm_id"`
	EventID     *int64    `json:"event_id,omitempty"`
	Category    string    `json:"category"` // travel, equipment, freelancer_fee...
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	SpentAt     time.Time `json:"spent_at"`
	CreatedAt   time.Time `json:"created_at"`
}
