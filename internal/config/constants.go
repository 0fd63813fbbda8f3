package config

const (
	// DefaultDatabasePath is the default path for the point-of-sale database
	DefaultDatabasePath = "./posdz.db"

	// DefaultAdminPassword is the PIN given to the seeded ADMIN account
	DefaultAdminPassword = "1234"
)
