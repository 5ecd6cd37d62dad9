// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps routes to their required security level. HTTP
// routes are keyed "METHOD path-template" using the gorilla/mux template;
// gRPC methods by full method name.
var EndpointSecurityConfig = map[string]SecurityLevel{
	"GET /healthz": SecurityPublic,

	// gRPC health probes
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/List":  SecurityPublic,

	// gRPC customer views
	"/bikeshare.v1.Bikeshare/ListMyNotifications": SecurityAccess,
	"/bikeshare.v1.Bikeshare/ListMyRentals":       SecurityAccess,
	"/bikeshare.v1.Bikeshare/ListMyWaitlist":      SecurityAccess,

	// Sale offers can be browsed anonymously
	"GET /api/v1/sale-offers": SecurityPublic,

	// Rentals
	"POST /api/v1/rentals":                      SecurityAccess,
	"POST /api/v1/rentals/{id:[0-9]+}/return":   SecurityAccess,
	"POST /api/v1/rentals/{id:[0-9]+}/payments": SecurityAccess,
	"GET /api/v1/rentals/{id:[0-9]+}/payments":  SecurityAccess,

	// Customer views
	"GET /api/v1/me/rentals":       SecurityAccess,
	"GET /api/v1/me/waitlist":      SecurityAccess,
	"GET /api/v1/me/notifications": SecurityAccess,

	// Sales
	"POST /api/v1/sale-offers":               SecurityAccess,
	"POST /api/v1/basket/items":              SecurityAccess,
	"POST /api/v1/purchases/checkout":        SecurityAccess,
	"GET /api/v1/purchases/{id:[0-9]+}":      SecurityAccess,
	"POST /api/v1/purchases/{id:[0-9]+}/pay": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
