package alert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/order-alert/internal/model"
)

const (
	DefaultThreshold = 100.0
	DefaultCurrency  = "£"
)

// Sender delivers one SMS and returns the provider-assigned message id.
type Sender interface {
	Send(ctx context.Context, creds model.Credentials, req model.NotificationRequest) (string, error)
}

// CredentialsSource is consulted once per invocation that crossed the threshold.
type CredentialsSource interface {
	Credentials() model.Credentials
}

// Result is the outcome of a single invocation. Err is set for the
// credentials_missing and *_error outcomes.
type Result struct {
	Outcome    model.Outcome
	Event      model.OrderEvent
	MessageSID string
	Err        error
}

// Handler turns one order event into at most one SMS.
// It holds no per-invocation state and is safe for concurrent use.
type Handler struct {
	sender    Sender
	creds     CredentialsSource
	threshold float64
	currency  string
	log       *zap.Logger
}

type Option func(*Handler)

func WithThreshold(v float64) Option { return func(h *Handler) { h.threshold = v } }

func WithCurrency(symbol string) Option {
	return func(h *Handler) {
		if symbol != "" {
			h.currency = symbol
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

func NewHandler(sender Sender, creds CredentialsSource, opts ...Option) *Handler {
	h := &Handler{
		sender:    sender,
		creds:     creds,
		threshold: DefaultThreshold,
		currency:  DefaultCurrency,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ShouldNotify is the business rule: strictly above the threshold and a phone to text.
func (h *Handler) ShouldNotify(ev model.OrderEvent) bool {
	return ev.OrderTotal > h.threshold && ev.PhoneNumber != ""
}

// BuildRequest renders the SMS for an event that passed ShouldNotify.
func (h *Handler) BuildRequest(ev model.OrderEvent, creds model.Credentials) model.NotificationRequest {
	return model.NotificationRequest{
		To:   ev.PhoneNumber,
		From: creds.FromNumber,
		Body: fmt.Sprintf("Order total %s%s exceeds %s%s!",
			h.currency, formatTotal(ev.OrderTotal), h.currency, formatThreshold(h.threshold)),
	}
}

// Handle runs decode → parse → decide → credentials → dispatch and reports
// what happened. It never panics on behalf of the sender and never logs.
func (h *Handler) Handle(ctx context.Context, payload []byte) Result {
	ev, err := ParseOrderEvent(payload)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return Result{Outcome: model.OutcomeDecodeError, Err: err}
		}
		return Result{Outcome: model.OutcomeParseError, Err: err}
	}

	res := Result{Event: ev}

	if !h.ShouldNotify(ev) {
		res.Outcome = model.OutcomeSkipped
		return res
	}

	creds := h.creds.Credentials()
	if !creds.Complete() {
		res.Outcome = model.OutcomeCredentialsMissing
		res.Err = ErrCredentialsMissing
		return res
	}

	sid, err := h.dispatch(ctx, creds, h.BuildRequest(ev, creds))
	if err != nil {
		res.Outcome = model.OutcomeDispatchError
		res.Err = err
		return res
	}

	res.Outcome = model.OutcomeNotified
	res.MessageSID = sid
	return res
}

func (h *Handler) dispatch(ctx context.Context, creds model.Credentials, req model.NotificationRequest) (sid string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch notification: panic: %v", r)
		}
	}()

	sid, err = h.sender.Send(ctx, creds, req)
	if err != nil {
		return "", fmt.Errorf("dispatch notification: %w", err)
	}
	return sid, nil
}

// Process is Handle followed by LogResult. Extra fields (invocation id,
// partition, offset...) are attached to every line.
func (h *Handler) Process(ctx context.Context, payload []byte, fields ...zap.Field) Result {
	log := h.log.With(fields...)
	log.Info("processing order event", zap.Int("bytes", len(payload)))

	res := h.Handle(ctx, payload)
	LogResult(log, res, h.currency)
	return res
}

// LogResult writes the decision-point lines for one invocation.
func LogResult(log *zap.Logger, res Result, currency string) {
	switch res.Outcome {
	case model.OutcomeDecodeError, model.OutcomeParseError:
		log.Error("error processing message", zap.String("outcome", res.Outcome.String()), zap.Error(res.Err))
		return
	}

	log.Info("order received",
		zap.String("order_total", currency+formatTotal(res.Event.OrderTotal)),
		zap.String("phone", res.Event.PhoneNumber),
	)

	switch res.Outcome {
	case model.OutcomeSkipped:
		log.Info("order total does not exceed threshold or phone number missing")
	case model.OutcomeCredentialsMissing:
		log.Error("twilio credentials are not set", zap.String("outcome", res.Outcome.String()))
	case model.OutcomeDispatchError:
		log.Error("error processing message", zap.String("outcome", res.Outcome.String()), zap.Error(res.Err))
	case model.OutcomeNotified:
		log.Info("sms sent", zap.String("message_sid", res.MessageSID))
	}
}

// Record converts a result into its audit row.
func (r Result) Record(id string, source model.Source, at time.Time) model.AlertRecord {
	rec := model.AlertRecord{
		ID:         id,
		Source:     source,
		Outcome:    r.Outcome,
		OrderTotal: r.Event.OrderTotal,
		Phone:      r.Event.PhoneNumber,
		MessageSID: r.MessageSID,
		CreatedAt:  at,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	if math.IsNaN(rec.OrderTotal) || math.IsInf(rec.OrderTotal, 0) {
		rec.OrderTotal = 0
	}
	return rec
}
