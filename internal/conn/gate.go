package conn

// Bound is anything bound to a physical target.
type Bound interface {
	Identity() Identity
}

// CanCombine is the compatibility gate for joins and set operations: it
// reports whether both sides target the same physical connection. A zero
// identity never combines, not even with another zero identity.
func CanCombine(left, right Bound) bool {
	if left == nil || right == nil {
		return false
	}
	l, r := left.Identity(), right.Identity()
	if l.IsZero() || r.IsZero() {
		return false
	}
	return l.Equal(r)
}
