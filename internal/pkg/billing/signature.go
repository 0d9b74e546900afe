package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// PaddleSignatureHeader carries the webhook signature: "ts=<unix>;h1=<hex>".
const PaddleSignatureHeader = "Paddle-Signature"

// VerifyPaddleSignature checks an HMAC-SHA256 over "ts:body". Several h1
// values may be present while a secret is being rotated; any match passes.
// A tolerance of zero disables the timestamp check.
func VerifyPaddleSignature(payload []byte, signatureHeader, webhookSecret string, now time.Time, tolerance time.Duration) bool {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return false
	}

	ts, signatures := parseSignatureHeader(signatureHeader)
	if ts == "" || len(signatures) == 0 {
		return false
	}

	if tolerance > 0 {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return false
		}
		skew := now.Sub(time.Unix(unix, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > tolerance {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(strings.ToLower(sig))
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			return true
		}
	}
	return false
}

// SignPaddlePayload builds a header value for body at ts. Used by the CLI and tests.
func SignPaddlePayload(payload []byte, webhookSecret string, ts time.Time) string {
	unix := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(webhookSecret)))
	mac.Write([]byte(unix))
	mac.Write([]byte(":"))
	mac.Write(payload)
	return "ts=" + unix + ";h1=" + hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (string, []string) {
	var ts string
	var signatures []string
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "h1":
			if v := strings.TrimSpace(value); v != "" {
				signatures = append(signatures, v)
			}
		}
	}
	return ts, signatures
}
