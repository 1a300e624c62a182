package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRelation = "pushdown/relation/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RelationID computes a content-addressed ID for generated SQL.
//
// The ID covers the SQL text, every bound argument (type and value) and the
// fingerprint of the connection the SQL is bound to. Compiling the same plan
// twice must produce the same ID; tests rely on this to check determinism.
func RelationID(sql string, args []any, connFingerprint string) (string, error) {
	buf := make([]byte, 0, len(sql)+64)
	buf = append(buf, sql...)
	buf = append(buf, 0x00)
	for i, a := range args {
		enc, err := encodeArg(a)
		if err != nil {
			return "", fmt.Errorf("RelationID: arg %d: %w", i, err)
		}
		buf = append(buf, enc...)
		buf = append(buf, 0x00)
	}
	buf = append(buf, connFingerprint...)
	return hashWithDomain(DomainRelation, buf), nil
}

func encodeArg(a any) (string, error) {
	switch v := a.(type) {
	case nil:
		return "nil", nil
	case string:
		return "s:" + v, nil
	case int64:
		return fmt.Sprintf("i:%d", v), nil
	case float64:
		return fmt.Sprintf("f:%b", v), nil
	case bool:
		return fmt.Sprintf("b:%t", v), nil
	case []byte:
		return fmt.Sprintf("x:%x", v), nil
	case time.Time:
		return "t:" + v.UTC().Format(time.RFC3339Nano), nil
	default:
		return "", fmt.Errorf("unsupported argument type %T", a)
	}
}
