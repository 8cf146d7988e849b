package billing

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrymomot/stripekit/handler"
	"github.com/dmitrymomot/stripekit/pkg/billing"
	"github.com/dmitrymomot/stripekit/pkg/clientip"
	"github.com/dmitrymomot/stripekit/pkg/logger"
)

const testWebhookReceived = "Test webhook successfully received!"

// webhook records every delivery before answering. Stripe retries anything
// but 2xx, so only processing exceptions get a 5xx.
func (m *Module) webhook(ctx handler.Context, _ struct{}) handler.Response {
	r := ctx.Request()
	if r.Header.Get(billing.SignatureHeader) == "" {
		return handler.Text(http.StatusBadRequest, "missing "+billing.SignatureHeader+" header")
	}

	body, err := io.ReadAll(http.MaxBytesReader(ctx.ResponseWriter(), r.Body, m.cfg.MaxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return handler.Text(http.StatusRequestEntityTooLarge, "payload too large")
		}
		return handler.Text(http.StatusBadRequest, "unreadable payload")
	}

	trigger, err := m.webhooks.Ingest(ctx, billing.TriggerRequest{
		Headers:  flattenHeaders(r.Header),
		Body:     body,
		RemoteIP: clientip.GetIP(r),
	})
	switch {
	case trigger == nil:
		m.log.ErrorContext(ctx, "webhook trigger not recorded", logger.Error(err))
		return handler.Text(http.StatusInternalServerError, "webhook not recorded")
	case err != nil || trigger.HasException():
		return handler.Text(http.StatusInternalServerError, "webhook processing failed")
	case trigger.TestEvent:
		return handler.Text(http.StatusOK, testWebhookReceived)
	case !trigger.Valid:
		return handler.Text(http.StatusBadRequest, "invalid webhook")
	}
	return handler.Text(http.StatusOK, trigger.ID.String())
}

// flattenHeaders keeps one comma-joined value per header.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ",")
	}
	return out
}
