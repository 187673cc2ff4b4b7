package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/jamx/internal/shared"
)

const (
	signatureVersion = "v0"
	maxClockSkew     = 5 * time.Minute
)

// Sign computes the v0 Slack signature of body sent at timestamp.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:", signatureVersion, timestamp)
	mac.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a Slack request signature against secret.
//
// The timestamp must be within five minutes of now, which stops old requests being replayed.
func VerifySignature(secret, timestamp, signature string, body []byte, now time.Time) error {
	if timestamp == "" || signature == "" {
		return shared.ErrMissingSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", shared.ErrInvalidSignature, timestamp)
	}

	if skew := now.Sub(time.Unix(ts, 0)).Abs(); skew > maxClockSkew {
		return fmt.Errorf("%w: %s old", shared.ErrStaleTimestamp, skew.Round(time.Second))
	}

	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return shared.ErrInvalidSignature
	}
	return nil
}
