package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-billing-webhooks/core"
)

const DefaultTolerance = core.DefaultToleranceSeconds * time.Second

// User-facing reason messages. Transport tests assert on these verbatim, so
// they carry no package prefix.
const (
	MsgMalformedHeader     = "Unable to extract timestamp and signatures from header"
	MsgNoMatchingSignature = "No signatures found matching the expected signature for payload"
	MsgStaleTimestamp      = "Timestamp outside the tolerance zone"
)

// ParseHeader splits a signature header into its timestamp and digest pairs.
// A header lacking a timestamp field or a v1 digest is malformed regardless
// of body content.
func ParseHeader(header string) (core.ParsedSignature, error) {
	parsed := core.ParsedSignature{}
	sawTimestamp := false
	for _, item := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		if key == "t" {
			timestamp, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			parsed.Timestamp = timestamp
			sawTimestamp = true
			continue
		}
		parsed.Digests = append(parsed.Digests, core.SchemeDigest{
			Scheme: key,
			Digest: value,
		})
	}
	if !sawTimestamp || len(parsed.DigestsForScheme(core.SignatureSchemeV1)) == 0 {
		return core.ParsedSignature{}, malformedHeaderError(header)
	}
	return parsed, nil
}

// ComputeDigest returns the hex HMAC-SHA256 of "<timestamp>.<body>" keyed by
// secret. The body bytes are hashed exactly as received.
func ComputeDigest(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify authenticates body against header using secret. Comparison against
// each candidate digest is constant time; a single v1 match is sufficient.
// Freshness is checked independently: |now - t| beyond tolerance rejects even
// when a digest matched.
func Verify(body []byte, header string, secret string, tolerance time.Duration, now time.Time) error {
	parsed, err := ParseHeader(header)
	if err != nil {
		return err
	}

	expected := ComputeDigest(secret, parsed.Timestamp, body)
	matched := false
	for _, candidate := range parsed.DigestsForScheme(core.SignatureSchemeV1) {
		if constantTimeEqualHex(expected, candidate) {
			matched = true
		}
	}
	if !matched {
		return signatureAuthError(MsgNoMatchingSignature, core.WebhookErrorSignatureMismatch, map[string]any{
			"timestamp": parsed.Timestamp,
		})
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	drift := now.Sub(time.Unix(parsed.Timestamp, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > tolerance {
		return signatureAuthError(MsgStaleTimestamp, core.WebhookErrorSignatureStale, map[string]any{
			"timestamp":         parsed.Timestamp,
			"drift_seconds":     int64(drift / time.Second),
			"tolerance_seconds": int64(tolerance / time.Second),
		})
	}
	return nil
}

// Verifier binds Verify to long-lived configuration. The clock is injectable
// for tests.
type Verifier struct {
	Secret    string
	Tolerance time.Duration
	Now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{
		Secret:    strings.TrimSpace(secret),
		Tolerance: tolerance,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (v *Verifier) Verify(body []byte, header string) error {
	if v == nil {
		// A missing verifier is a wiring bug, not a bad signature.
		return goerrors.New("signature: verifier is nil", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.WebhookErrorInternal)
	}
	now := time.Now().UTC()
	if v.Now != nil {
		now = v.Now()
	}
	return Verify(body, header, v.Secret, v.Tolerance, now)
}

// constantTimeEqualHex compares two hex digests without leaking how many
// leading bytes match. Invalid hex never matches.
func constantTimeEqualHex(expected string, candidate string) bool {
	expectedBytes, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(expected)))
	if err != nil {
		return false
	}
	candidateBytes, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(candidate)))
	if err != nil {
		return false
	}
	return hmac.Equal(expectedBytes, candidateBytes)
}

func malformedHeaderError(header string) error {
	return goerrors.New(MsgMalformedHeader, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.WebhookErrorHeaderMalformed).
		WithMetadata(map[string]any{
			"header_present": strings.TrimSpace(header) != "",
		})
}

func signatureAuthError(message string, textCode string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
