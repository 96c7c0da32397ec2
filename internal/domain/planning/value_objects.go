package planning

import "github.com/cartwise/v3/internal/domain/catalog"

// ItemStatus marks whether a cart line resolved to a purchasable
// product or stands in as a placeholder.
type ItemStatus string

const (
	ItemStatusAvailable   ItemStatus = "available"
	ItemStatusUnavailable ItemStatus = "unavailable"
)

// StoreRole distinguishes the main shopping destination from an add-on
// specialty stop.
type StoreRole string

const (
	StoreRolePrimary   StoreRole = "primary"
	StoreRoleSpecialty StoreRole = "specialty"
)

// RejectionReason is the machine-readable tag attached to every
// candidate the constraint filter eliminates. Tags surface verbatim in
// decision traces so a shopper can see exactly why a product lost.
type RejectionReason string

const (
	RejectionStoreEnforcement      RejectionReason = "STORE_ENFORCEMENT"
	RejectionPrivateLabelViolation RejectionReason = "PRIVATE_LABEL_VIOLATION"
	RejectionRecallMatch           RejectionReason = "RECALL_MATCH"
	RejectionSanityCheckFailed     RejectionReason = "SANITY_CHECK_FAILED"
	RejectionFormMismatch          RejectionReason = "FORM_MISMATCH"
)

// Elimination records one filtered-out candidate together with the rule
// that removed it.
type Elimination struct {
	Candidate catalog.Candidate `json:"candidate"`
	Reason    RejectionReason   `json:"reason"`
}

// FilterResult partitions a retrieval pool into the candidates that may
// be scored and the candidates the constraint filter removed, in the
// order they were removed.
type FilterResult struct {
	Survivors  []catalog.Candidate `json:"survivors"`
	Eliminated []Elimination       `json:"eliminated"`
}
