package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature the client relays after paying
// in the gateway UI: HMAC-SHA256 over "orderID|paymentID" with the key secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	expected := hmacSHA256Hex([]byte(c.cfg.KeySecret), []byte(orderID+"|"+paymentID))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the signature on a webhook delivery:
// HMAC-SHA256 over the raw body bytes with the webhook secret. The body must
// be the exact bytes received; parsing first invalidates the signature.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	expected := hmacSHA256Hex([]byte(c.cfg.WebhookSecret), rawBody)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func hmacSHA256Hex(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
