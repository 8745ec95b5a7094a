package warehouse

// Warehouse is a warehouse location as stored in the CRM.
type Warehouse struct {
	ID       string
	Code     string
	Name     string
	Address  *string
	IsActive bool
}
