package entities

// Collection names as seen by callers of the access layer. Table names may
// differ (saleItems is stored in sale_items).
const (
	CollectionUsers     = "users"
	CollectionProducts  = "products"
	CollectionFamilies  = "families"
	CollectionCustomers = "customers"
	CollectionSuppliers = "suppliers"
	CollectionSales     = "sales"
	CollectionSaleItems = "saleItems"
	CollectionDebts     = "debts"
	CollectionSettings  = "settings"
	CollectionLogs      = "logs"
	CollectionCounter   = "counter"
)

// CounterID is the fixed key of the invoice counter singleton.
const CounterID uint = 1
