// Package conn identifies the physical store a translated relation is bound
// to, and gates which relations may be combined into one statement.
package conn

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Identity identifies a physical target: the endpoint set, the credentials
// and the default database. Two relations may share one SQL statement only
// if their identities are equal.
//
// Identity is a value type. Build it with NewIdentity so the endpoint set is
// normalized; the zero Identity means "unresolved".
type Identity struct {
	Endpoints []string
	User      string
	Password  string
	Database  string
}

// NewIdentity normalizes endpoints (trimmed, lower-cased, sorted,
// de-duplicated) so that endpoint order never affects equality.
func NewIdentity(endpoints []string, user, password, database string) Identity {
	norm := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			norm = append(norm, e)
		}
	}
	slices.Sort(norm)
	norm = slices.Compact(norm)
	return Identity{
		Endpoints: norm,
		User:      user,
		Password:  password,
		Database:  database,
	}
}

// IsZero reports whether the identity is unresolved.
func (id Identity) IsZero() bool {
	return len(id.Endpoints) == 0 && id.User == "" && id.Password == "" && id.Database == ""
}

// Equal reports structural equality: same endpoint set, same credentials,
// same default database.
func (id Identity) Equal(o Identity) bool {
	if id.User != o.User || id.Password != o.Password || id.Database != o.Database {
		return false
	}
	return slices.Equal(sortedEndpoints(id.Endpoints), sortedEndpoints(o.Endpoints))
}

func sortedEndpoints(e []string) []string {
	if slices.IsSorted(e) {
		return slices.Compact(slices.Clone(e))
	}
	s := slices.Clone(e)
	slices.Sort(s)
	return slices.Compact(s)
}

// Fingerprint returns a stable hex digest of the identity, usable as a cache
// key. Equal identities have equal fingerprints.
func (id Identity) Fingerprint() string {
	d := xxhash.New()
	for _, e := range sortedEndpoints(id.Endpoints) {
		_, _ = d.WriteString(e)
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.Write([]byte{1})
	_, _ = d.WriteString(id.User)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(id.Password)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(id.Database)
	return strconv.FormatUint(d.Sum64(), 16)
}

// String renders the identity with the password redacted.
func (id Identity) String() string {
	pw := ""
	if id.Password != "" {
		pw = ":***"
	}
	return fmt.Sprintf("%s%s@%s/%s", id.User, pw, strings.Join(id.Endpoints, ","), id.Database)
}
