package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	signerKey
)

// WithRequestID returns ctx carrying the request identifier. Records logged
// with that context get a request_id attribute.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithSigner returns ctx carrying the verified signer of the request.
func WithSigner(ctx context.Context, signer string) context.Context {
	return context.WithValue(ctx, signerKey, signer)
}

// RequestID returns the identifier stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Signer returns the signer stored by WithSigner.
func Signer(ctx context.Context) string {
	s, _ := ctx.Value(signerKey).(string)
	return s
}

// contextHandler copies request scoped values from the context onto each record.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if s := Signer(ctx); s != "" {
		r.AddAttrs(slog.String("signer", s))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
