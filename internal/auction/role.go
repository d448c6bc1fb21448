package auction

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

type Capability string

const (
	CapPlaceBid      Capability = "place_bid"
	CapWithdrawBid   Capability = "withdraw_bid"
	CapCreateListing Capability = "create_listing"
	CapManageListing Capability = "manage_listing"
	CapReconcile     Capability = "reconcile_auctions"
)

var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleBuyer: {
		CapPlaceBid:    {},
		CapWithdrawBid: {},
	},
	RoleSeller: {
		CapCreateListing: {},
		CapManageListing: {},
		CapPlaceBid:      {},
		CapWithdrawBid:   {},
	},
	RoleAdmin: {
		CapPlaceBid:      {},
		CapWithdrawBid:   {},
		CapCreateListing: {},
		CapManageListing: {},
		CapReconcile:     {},
	},
}

// Can resolves a role to its capability set. Unknown roles hold no
// capabilities.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}
