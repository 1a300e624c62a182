package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type bound Identity

func (b bound) Identity() Identity { return Identity(b) }

func TestNewIdentityNormalizesEndpoints(t *testing.T) {
	id := NewIdentity([]string{" B1.example:3306", "a1.example:3306", "", "b1.example:3306 "}, "app", "pw", "shop")

	assert.Equal(t, []string{"a1.example:3306", "b1.example:3306"}, id.Endpoints)
	assert.Equal(t, "app", id.User)
	assert.Equal(t, "shop", id.Database)
}

func TestIdentityEqual(t *testing.T) {
	base := NewIdentity([]string{"a:1", "b:1"}, "app", "pw", "shop")

	tests := []struct {
		name  string
		other Identity
		want  bool
	}{
		{"endpoint order", NewIdentity([]string{"b:1", "a:1"}, "app", "pw", "shop"), true},
		{"unnormalized endpoints", Identity{Endpoints: []string{"b:1", "a:1", "a:1"}, User: "app", Password: "pw", Database: "shop"}, true},
		{"other endpoint set", NewIdentity([]string{"a:1"}, "app", "pw", "shop"), false},
		{"other user", NewIdentity([]string{"a:1", "b:1"}, "root", "pw", "shop"), false},
		{"other password", NewIdentity([]string{"a:1", "b:1"}, "app", "secret", "shop"), false},
		{"other database", NewIdentity([]string{"a:1", "b:1"}, "app", "pw", "billing"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.other))
			assert.Equal(t, tt.want, tt.other.Equal(base), "Equal is symmetric")
			assert.Equal(t, tt.want, base.Fingerprint() == tt.other.Fingerprint(), "fingerprints agree with Equal")
		})
	}
}

func TestIdentityFingerprintFieldBoundaries(t *testing.T) {
	a := Identity{Endpoints: []string{"h:1"}, User: "ab", Password: "c"}
	b := Identity{Endpoints: []string{"h:1"}, User: "a", Password: "bc"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestIdentityIsZero(t *testing.T) {
	assert.True(t, Identity{}.IsZero())
	assert.True(t, NewIdentity(nil, "", "", "").IsZero())
	assert.False(t, NewIdentity(nil, "app", "", "").IsZero())
}

func TestIdentityStringRedactsPassword(t *testing.T) {
	id := NewIdentity([]string{"b:1", "a:1"}, "app", "hunter2", "shop")
	assert.Equal(t, "app:***@a:1,b:1/shop", id.String())
	assert.NotContains(t, id.String(), "hunter2")

	assert.Equal(t, "app@a:1/", NewIdentity([]string{"a:1"}, "app", "", "").String())
}

func TestCanCombine(t *testing.T) {
	a := bound(NewIdentity([]string{"a:1"}, "app", "", "shop"))
	a2 := bound(NewIdentity([]string{" A:1 "}, "app", "", "shop"))
	b := bound(NewIdentity([]string{"b:1"}, "app", "", "shop"))

	tests := []struct {
		name        string
		left, right Bound
		want        bool
	}{
		{"same target", a, a2, true},
		{"different target", a, b, false},
		{"zero identities", bound{}, bound{}, false},
		{"one zero", a, bound{}, false},
		{"nil side", a, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanCombine(tt.left, tt.right))
			assert.Equal(t, tt.want, CanCombine(tt.right, tt.left))
		})
	}
}
