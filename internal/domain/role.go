package domain

import "fmt"

// Role is one of the four stateful positions in the supply chain, ordered downstream to upstream.
type Role int

const (
	Retailer Role = iota
	Wholesaler
	Distributor
	Manufacturer
)

// NumRoles is the number of stateful roles in a team.
const NumRoles = 4

// Roles lists every role in downstream-to-upstream order.
var Roles = [NumRoles]Role{Retailer, Wholesaler, Distributor, Manufacturer}

var roleNames = [NumRoles]string{"Retailer", "Wholesaler", "Distributor", "Manufacturer"}

// Valid reports whether r is one of the four chain roles.
func (r Role) Valid() bool {
	return r >= Retailer && r <= Manufacturer
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// MarshalText encodes the role by name so it can key JSON objects.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole resolves a role by its name.
func ParseRole(name string) (Role, error) {
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, name)
}

// Upstream returns the endpoint this role orders from.
func (r Role) Upstream() Endpoint {
	if r == Manufacturer {
		return ExternalEndpoint(Supplier)
	}
	return RoleEndpoint(r + 1)
}

// Downstream returns the endpoint this role ships to.
func (r Role) Downstream() Endpoint {
	if r == Retailer {
		return ExternalEndpoint(Customer)
	}
	return RoleEndpoint(r - 1)
}

// External names an infinite boundary of the chain that owns no state.
type External int

const (
	// NotExternal marks an endpoint that refers to a chain role.
	NotExternal External = iota
	// Supplier is the unconstrained source feeding the Manufacturer.
	Supplier
	// Customer is the sink consuming the Retailer's shipments.
	Customer
)

// Endpoint is either a chain Role or an External boundary.
type Endpoint struct {
	role     Role
	external External
}

// RoleEndpoint wraps a chain role.
func RoleEndpoint(r Role) Endpoint { return Endpoint{role: r} }

// ExternalEndpoint wraps a chain boundary.
func ExternalEndpoint(e External) Endpoint { return Endpoint{external: e} }

// Role returns the wrapped role and whether the endpoint is a chain role.
func (e Endpoint) Role() (Role, bool) {
	if e.external != NotExternal {
		return 0, false
	}
	return e.role, true
}

// External returns the boundary kind, NotExternal for chain roles.
func (e Endpoint) External() External { return e.external }

func (e Endpoint) String() string {
	switch e.external {
	case Supplier:
		return "Supplier"
	case Customer:
		return "Customer"
	default:
		return e.role.String()
	}
}

// MarshalText encodes the endpoint as a role name, "Supplier" or "Customer".
func (e Endpoint) MarshalText() ([]byte, error) {
	if e.external == NotExternal {
		return e.role.MarshalText()
	}
	return []byte(e.String()), nil
}

// UnmarshalText decodes an endpoint name.
func (e *Endpoint) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Supplier":
		*e = ExternalEndpoint(Supplier)
		return nil
	case "Customer":
		*e = ExternalEndpoint(Customer)
		return nil
	}
	r, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*e = RoleEndpoint(r)
	return nil
}
