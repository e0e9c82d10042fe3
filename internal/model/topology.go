package model

import "fmt"

// StructuralError is a topology validation failure. It always carries a
// human-readable reason naming the rule that was violated.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "mechanism: " + e.Reason
}

func structuralf(format string, args ...any) error {
	return &StructuralError{Reason: fmt.Sprintf(format, args...)}
}

// ValidateTopology checks that a joint/link set is a valid one-DOF
// planar mechanism. Checks run in order and short-circuit on the first
// failure:
//
//  1. at least 4 joints
//  2. exactly 2 fixed joints
//  3. exactly 1 driven joint, carrying a pivot
//  4. at least 1 free joint
//  5. degree-of-freedom balance F = 2n - 2f - 2k - (g-1) = 0, where the
//     (g-1) correction accounts for the mandatory pivot-to-driven crank
//     link fixing only the crank radius
//  6. the joint/link graph is connected
//
// A mechanism failing any check must never reach the pose solver.
func ValidateTopology(joints []Joint, links []Link) error {
	n := len(joints)
	if n < 4 {
		return structuralf("at least 4 joints required, have %d", n)
	}

	var fixed, driven, free int
	for _, j := range joints {
		switch j.Kind {
		case Fixed:
			fixed++
		case Driven:
			driven++
			if j.Pivot == nil {
				return structuralf("driven joint is missing its pivot")
			}
		case Free:
			free++
		}
	}
	if fixed != 2 {
		return structuralf("exactly 2 fixed joints required, have %d", fixed)
	}
	if driven != 1 {
		return structuralf("exactly 1 driven joint required, have %d", driven)
	}
	if free < 1 {
		return structuralf("at least 1 free joint required")
	}

	g := len(links)
	for i, l := range links {
		if l.A < 0 || l.A >= n || l.B < 0 || l.B >= n {
			return structuralf("link %d references joint out of range", i)
		}
		if l.A == l.B {
			return structuralf("link %d connects joint %d to itself", i, l.A)
		}
	}

	// Modified Grübler count for this family of mechanisms.
	dof := 2*n - 2*fixed - 2*driven - (g - 1)
	if dof != 0 {
		return structuralf("degree of freedom F = %d, want 0", dof)
	}

	if !connected(n, links) {
		return structuralf("joint graph is not connected")
	}
	return nil
}

// RequiredLinkCount returns the link count that balances the degree of
// freedom equation (2n - 2f - 2k + 1) for the given joints. It returns
// -1 when the joint kinds do not match the 2-fixed / 1-driven schema,
// signalling that the precondition itself still needs fixing.
func RequiredLinkCount(joints []Joint) int {
	n := len(joints)
	var fixed, driven int
	for _, j := range joints {
		switch j.Kind {
		case Fixed:
			fixed++
		case Driven:
			driven++
		}
	}
	if fixed != 2 || driven != 1 {
		return -1
	}
	return 2*n - 2*fixed - 2*driven + 1
}

// connected reports whether every joint is reachable from every other
// joint via links, using a path-compressed disjoint-set union.
func connected(n int, links []Link) bool {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(u int) int {
		if parent[u] != u {
			parent[u] = find(parent[u])
		}
		return parent[u]
	}
	components := n
	for _, l := range links {
		ra, rb := find(l.A), find(l.B)
		if ra != rb {
			parent[ra] = rb
			components--
		}
	}
	return components == 1
}
