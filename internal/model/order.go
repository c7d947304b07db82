package model

// OrderEvent is the decoded body of one inbound order message.
type OrderEvent struct {
	OrderTotal  float64 `json:"order_total"`
	PhoneNumber string  `json:"phone_number,omitempty"` // empty when absent
}

// NotificationRequest is the SMS derived from an OrderEvent that crossed the threshold.
type NotificationRequest struct {
	To   string
	From string
	Body string
}

// Credentials authenticate against the SMS provider.
type Credentials struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Complete reports whether all three values are set.
func (c Credentials) Complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}
