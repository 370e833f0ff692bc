package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// GenesisHash is the PrevHash of the first event in an empty ledger.
const GenesisHash = "GENESIS"

// noActor stands in for a nil ActorID in the hashed payload.
const noActor = "None"

// Details is the open-ended payload attached to an audit event.
type Details map[string]any

// AuditEvent is one immutable entry of the hash-chained ledger.
// Details holds the canonical JSON form that was hashed.
type AuditEvent struct {
	Seq       int64     `json:"id"`
	ActorID   *int64    `json:"actor_user_id,omitempty"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Details   string    `json:"details"`
	EventHash string    `json:"event_hash"`
	PrevHash  string    `json:"prev_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpectedHash recomputes the hash the event must carry given its fields.
func (e *AuditEvent) ExpectedHash() (string, error) {
	canonical, err := CanonicalizeDetails(e.Details)
	if err != nil {
		return "", err
	}
	return ComputeEventHash(e.ActorID, e.Action, e.Target, canonical, e.PrevHash), nil
}

// CanonicalDetails serialises d in the canonical form described on
// CanonicalizeDetails.
func CanonicalDetails(d Details) (string, error) {
	if d == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode audit details: %w", err)
	}
	return CanonicalizeDetails(string(raw))
}

// CanonicalizeDetails re-encodes a stored JSON payload into canonical form:
// keys sorted at every level, ", " and ": " separators, and every rune
// outside printable ASCII written as a lowercase \uXXXX escape. Number
// literals keep their text. Ledgers written by other producers of the same
// sorted-key, ASCII-escaped rendering verify unchanged.
func CanonicalizeDetails(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "{}", nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("decode audit details: %w", err)
	}
	var b strings.Builder
	if err := writeCanonical(&b, v); err != nil {
		return "", fmt.Errorf("encode audit details: %w", err)
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case json.Number:
		b.WriteString(x.String())
	case string:
		writeCanonicalString(b, x)
	case []any:
		b.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeCanonical(b, elem); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			writeCanonicalString(b, k)
			b.WriteString(": ")
			if err := writeCanonical(b, x[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value of type %T", v)
	}
	return nil
}

func writeCanonicalString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				b.WriteRune(r)
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(b, `\u%04x\u%04x`, hi, lo)
			default:
				fmt.Fprintf(b, `\u%04x`, r)
			}
		}
	}
	b.WriteByte('"')
}

// ComputeEventHash returns hex(sha256) of
// "actor|action|target|canonicalDetails|prevHash". An absent actor is
// written as None, so it never collides with actor 0.
func ComputeEventHash(actorID *int64, action, target, canonicalDetails, prevHash string) string {
	actor := noActor
	if actorID != nil {
		actor = strconv.FormatInt(*actorID, 10)
	}
	payload := strings.Join([]string{actor, action, target, canonicalDetails, prevHash}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Audit actions written by the identity flows.
const (
	ActionRegister       = "auth.register"
	ActionVerifyEmail    = "auth.verify_email"
	ActionLoginFailed    = "auth.login_failed"
	ActionLoginChallenge = "auth.login_otp_challenge"
	ActionAdminBypass2FA = "auth.admin_bypass_2fa"
	ActionOTPFailed      = "auth.otp_failed"
	ActionVerify2FA      = "auth.verify_2fa"
	ActionRefresh        = "auth.refresh"
	ActionRefreshReuse   = "auth.refresh_reuse_detected"
	ActionLogout         = "auth.logout"
	ActionBootstrapUser  = "system.bootstrap_user"
)

const (
	TargetUser    = "user"
	TargetSession = "session"
)
