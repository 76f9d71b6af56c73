package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestCreated     Type = "request.created"
	TypeRequestEdited      Type = "request.edited"
	TypeRequestSubmitted   Type = "request.submitted"
	TypeRequestApproved    Type = "request.approved"
	TypeRequestRejected    Type = "request.rejected"
	TypeRequestCancelled   Type = "request.cancelled"
	TypeDecisionRecorded   Type = "decision.recorded"
	TypeLedgerMaterialized Type = "ledger.materialized"
)

// All lists every event type, in lifecycle order
var All = []Type{
	TypeRequestCreated,
	TypeRequestEdited,
	TypeRequestSubmitted,
	TypeDecisionRecorded,
	TypeRequestApproved,
	TypeRequestRejected,
	TypeRequestCancelled,
	TypeLedgerMaterialized,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	for _, known := range All {
		if t == known {
			return true
		}
	}
	return false
}
