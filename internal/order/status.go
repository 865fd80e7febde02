package order

import "fmt"

type Status string

const (
	// StatusPending is set at creation. The only engine-driven transition
	// is Pending -> Cancelled; fulfillment flips Pending -> Completed out
	// of band. Both Completed and Cancelled are terminal.
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus resolves a wire value to a Status. "Failed" is accepted as a
// legacy alias for Cancelled: older clients used the failure name for
// cancelled orders.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	if s == "Failed" {
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
