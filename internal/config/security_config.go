package config

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityOptional                      // Token used when present
	SecurityAccess                        // Access token required in the Authorization header
	SecurityQuery                         // Access token required, accepted from the ?token= parameter
)

// EndpointSecurityConfig maps route names to their required security level.
// Role checks happen later in the authorization policy.
var EndpointSecurityConfig = map[string]SecurityLevel{
	"health": SecurityPublic,

	// Auth - Public
	"auth.register": SecurityPublic,
	"auth.login":    SecurityPublic,

	"profile.get":    SecurityAccess,
	"profile.update": SecurityAccess,

	// Catalogue - Public; staff see decommissioned vehicles with status=all
	"vehicles.list":        SecurityOptional,
	"vehicles.get":         SecurityPublic,
	"vehicles.unavailable": SecurityPublic,
	"branches.list":        SecurityPublic,
	"categories.list":      SecurityPublic,
	"vehicles.create":      SecurityAccess,
	"vehicles.update":      SecurityAccess,
	"vehicles.delete":      SecurityAccess,

	"reservations.create":  SecurityAccess,
	"reservations.list":    SecurityAccess,
	"reservations.get":     SecurityAccess,
	"reservations.update":  SecurityAccess,
	"reservations.export":  SecurityAccess,
	"reservations.damages": SecurityAccess,

	"payments.create": SecurityAccess,
	"payments.get":    SecurityAccess,

	"damage.create": SecurityAccess,

	"complaints.list":    SecurityAccess,
	"complaints.create":  SecurityAccess,
	"complaints.resolve": SecurityAccess,

	"documents.list":    SecurityAccess,
	"documents.create":  SecurityAccess,
	"documents.delete":  SecurityAccess,
	"documents.all":     SecurityAccess,
	"documents.approve": SecurityAccess,
	"documents.reject":  SecurityAccess,
	"files.get":         SecurityAccess,

	"reviews.list":   SecurityPublic,
	"reviews.create": SecurityAccess,

	"users.list":   SecurityAccess,
	"users.create": SecurityAccess,
	"users.update": SecurityAccess,
	"users.delete": SecurityAccess,

	"stats.get":   SecurityAccess,
	"logs.list":   SecurityAccess,
	"logs.stream": SecurityQuery,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
