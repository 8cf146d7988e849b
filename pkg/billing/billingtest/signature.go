package billingtest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Sign returns a Stripe-Signature header value for payload.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// EventPayload builds a minimal event envelope around object.
func EventPayload(id, eventType string, livemode bool, object string) []byte {
	if object == "" {
		object = "{}"
	}
	return fmt.Appendf(nil,
		`{"id":%q,"object":"event","type":%q,"livemode":%t,"api_version":"2024-09-30.acacia","created":1700000000,"data":{"object":%s}}`,
		id, eventType, livemode, object)
}
