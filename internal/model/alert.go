package model

import "time"

type Outcome string

const (
	OutcomeNotified           Outcome = "notified"
	OutcomeSkipped            Outcome = "skipped"
	OutcomeCredentialsMissing Outcome = "credentials_missing"
	OutcomeDecodeError        Outcome = "decode_error"
	OutcomeParseError         Outcome = "parse_error"
	OutcomeDispatchError      Outcome = "dispatch_error"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeNotified, OutcomeSkipped, OutcomeCredentialsMissing,
		OutcomeDecodeError, OutcomeParseError, OutcomeDispatchError:
		return true
	}
	return false
}

// Failed reports whether the outcome is one of the error variants.
func (o Outcome) Failed() bool {
	return o == OutcomeDecodeError || o == OutcomeParseError || o == OutcomeDispatchError
}

type Source string

const (
	SourceKafka Source = "kafka"
	SourceHTTP  Source = "http"
)

func (s Source) String() string { return string(s) }

// AlertRecord is the audit row persisted in the order_alerts table, one per invocation.
type AlertRecord struct {
	ID         string    `db:"id" json:"id"` // invocation ULID
	Source     Source    `db:"source" json:"source"`
	Outcome    Outcome   `db:"outcome" json:"outcome"`
	OrderTotal float64   `db:"order_total" json:"order_total"`
	Phone      string    `db:"phone" json:"phone"`
	MessageSID string    `db:"message_sid" json:"message_sid,omitempty"`
	Error      string    `db:"error" json:"error,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
