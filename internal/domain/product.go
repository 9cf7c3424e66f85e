package domain

// Product is the ledger view the engine reads capacity from. Stock changes
// (restocking) come from the catalog side and only shift the availability
// baseline; they never touch holds.
type Product struct {
	ID            string
	Name          string
	StockQuantity int
}
