package models

// TriggerType is a named business event kind a definition matches against.
// Matching is exact string equality, so these values are part of the contract
// with the event producers.
type TriggerType string

const (
	TriggerInvoiceCreated TriggerType = "invoice_created"
	TriggerInvoiceDue     TriggerType = "invoice_due"
	TriggerInvoiceOverdue TriggerType = "invoice_overdue"
	TriggerClientAdded    TriggerType = "client_added"
)

// AllTriggerTypes lists every known trigger kind.
func AllTriggerTypes() []TriggerType {
	return []TriggerType{TriggerInvoiceCreated, TriggerInvoiceDue, TriggerInvoiceOverdue, TriggerClientAdded}
}

func (t TriggerType) Valid() bool {
	switch t {
	case TriggerInvoiceCreated, TriggerInvoiceDue, TriggerInvoiceOverdue, TriggerClientAdded:
		return true
	}
	return false
}

// SubjectEntity returns the entity kind the trigger's entity_id refers to.
func (t TriggerType) SubjectEntity() string {
	if t == TriggerClientAdded {
		return "client"
	}
	return "invoice"
}

// Event is a domain event handed to the dispatcher by the surrounding
// application whenever an invoice is created/becomes due/becomes overdue or a
// client is added. ID is assigned on dispatch when empty.
type Event struct {
	ID       string         `json:"id,omitempty"`
	Type     TriggerType    `json:"type"`
	EntityID int64          `json:"entityId"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// EntityRef identifies the triggering entity an execution operates on.
type EntityRef struct {
	EntityType string
	EntityID   int64
}

// StepContext is what an action handler gets to know about where it runs.
// ExecutionID and StepOrder key idempotency records.
type StepContext struct {
	ExecutionID int64
	StepOrder   int
	Entity      EntityRef
}
