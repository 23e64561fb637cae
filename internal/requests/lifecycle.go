package requests

import "github.com/askservice/leadmarket-backend/pkg/enums"

var transitions = map[enums.ServiceRequestStatus][]enums.ServiceRequestStatus{
	enums.ServiceRequestStatusPendingVerification: {enums.ServiceRequestStatusActive},
	enums.ServiceRequestStatusActive: {
		enums.ServiceRequestStatusCancelled,
		enums.ServiceRequestStatusClosed,
		enums.ServiceRequestStatusExpired,
	},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
// Terminal states have no outgoing edges. from must be the stored value, since
// the transition update matches on it.
func CanTransition(from, to enums.ServiceRequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
