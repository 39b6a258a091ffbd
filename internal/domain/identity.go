package domain

// Partition key layout in the snapshot store.
const (
	PartitionPrefix = "cart:"
	GuestPartition  = PartitionPrefix + "guest"
)

// Identity is the authenticated shopper as supplied by the identity provider.
// Any one of the identifier fields is enough to key a partition.
type Identity struct {
	ID     string
	UserID string
	Email  string
}

// StableID returns the first non-empty identifier, preferring ID, then
// UserID, then Email.
func (i *Identity) StableID() string {
	if i == nil {
		return ""
	}
	switch {
	case i.ID != "":
		return i.ID
	case i.UserID != "":
		return i.UserID
	default:
		return i.Email
	}
}

// IsGuest reports whether there is no usable identity.
func (i *Identity) IsGuest() bool {
	return i.StableID() == ""
}

// PartitionKey maps an identity to its storage key: cart:<id>, or cart:guest
// when the identity is nil or carries no identifier.
func PartitionKey(i *Identity) string {
	id := i.StableID()
	if id == "" {
		return GuestPartition
	}
	return PartitionPrefix + id
}
