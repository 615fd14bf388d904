package totp

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	otplib "github.com/pquerna/otp/totp"
)

func TestGenerateProducesURLAndSecret(t *testing.T) {
	e, err := Generate("fleetcore", "operator")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if e.Secret == "" {
		t.Error("expected a non-empty secret")
	}
	if !strings.HasPrefix(e.URL, "otpauth://totp/") {
		t.Errorf("URL = %q, want an otpauth://totp/ URL", e.URL)
	}
}

func TestQRPNGProducesAPNG(t *testing.T) {
	e, err := Generate("fleetcore", "operator")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	png, err := e.QRPNG(128)
	if err != nil {
		t.Fatalf("QRPNG: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("expected a PNG-magic-prefixed payload")
	}
}

func TestSecretVerifierAcceptsValidCode(t *testing.T) {
	e, err := Generate("fleetcore", "operator")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	code, err := otplib.GenerateCodeCustom(e.Secret, time.Now(), otplib.ValidateOpts{
		Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if !SecretVerifier(e.Secret).Verify(code) {
		t.Error("expected a freshly generated code to verify")
	}
}

func TestSecretVerifierRejectsWrongCode(t *testing.T) {
	e, err := Generate("fleetcore", "operator")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if SecretVerifier(e.Secret).Verify("000000") {
		t.Error("expected an arbitrary code to be rejected (overwhelmingly likely)")
	}
}

func TestSecretVerifierEmptySecretAlwaysRejects(t *testing.T) {
	if SecretVerifier("").Verify("123456") {
		t.Error("expected an empty secret to never verify")
	}
}
