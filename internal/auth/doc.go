// Package auth identifies the operator at the till.
//
// It supports two authentication modes:
//   - "local": operators log in with username and password (bcrypt) and keep
//     a session cookie for the shift (default)
//   - "none": no login, every request acts as the seeded ADMIN account
//
// # Configuration
//
//	AUTH_MODE=local              # or none
//	AUTH_SESSION_LIFETIME=12h    # Session duration
//	AUTH_BCRYPT_COST=10          # bcrypt cost factor
//	AUTH_SECURE_COOKIES=false    # The bridge listens on loopback
//	AUTH_ADMIN_PASSWORD=1234     # Password of the seeded ADMIN account
//
// # Roles
//
// Accounts are either admin or cashier. Admin-only routes are guarded with
// Middleware.RequireRole; services check with HasRole.
//
// # Usage
//
//	authService := auth.NewService(db, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessions, cfg.Auth)
//	router.Use(sessions.SessionLoadSave(), authMiddleware.Handler())
//
//	username := auth.GetUsername(c)
package auth
