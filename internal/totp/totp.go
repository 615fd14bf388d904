// Package totp gates destructive commands (spec.md domain stack:
// reboot-class commands) behind a caller-supplied time-based one-time
// password, verified against a per-operator secret enrolled through
// cmd/fleetctl's QR enrollment flow.
package totp

import (
	"bytes"
	"image/png"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Enrollment is a freshly generated operator secret plus its QR-renderable
// key.
type Enrollment struct {
	Secret string
	URL    string
	key    *otp.Key
}

// Generate creates a new TOTP secret for account under issuer.
func Generate(issuer, account string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: account})
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{Secret: key.Secret(), URL: key.URL(), key: key}, nil
}

// QRPNG renders the enrollment as a PNG-encoded QR code at the given pixel
// size (square).
func (e Enrollment) QRPNG(size int) ([]byte, error) {
	code, err := qr.Encode(e.URL, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Verifier validates a caller-supplied code against an enrolled secret.
type Verifier interface {
	Verify(code string) bool
}

// SecretVerifier is a Verifier backed by a single static secret (spec.md
// domain stack: "verified against a per-operator secret").
type SecretVerifier string

func (s SecretVerifier) Verify(code string) bool {
	if s == "" {
		return false
	}
	ok, _ := totp.ValidateCustom(code, string(s), time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return ok
}
