package config

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityOperator                      // Any operator token
	SecurityAdmin                         // Admin operator token
)

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	"login":   SecurityPublic,
	"health":  SecurityPublic,
	"metrics": SecurityPublic,

	// Checkout desk
	"sessions.start":       SecurityOperator,
	"sessions.get":         SecurityOperator,
	"sessions.user":        SecurityOperator,
	"sessions.user.create": SecurityOperator,
	"sessions.scan":        SecurityOperator,
	"sessions.items.add":   SecurityOperator,
	"sessions.items.qty":   SecurityOperator,
	"sessions.items.del":   SecurityOperator,
	"sessions.review":      SecurityOperator,
	"sessions.due_date":    SecurityOperator,
	"sessions.notes":       SecurityOperator,
	"sessions.back":        SecurityOperator,
	"sessions.commit":      SecurityOperator,
	"sessions.cancel":      SecurityOperator,
	"users.search":         SecurityOperator,
	"resolve":              SecurityOperator,
	"equipment.list":       SecurityOperator,
	"equipment.get":        SecurityOperator,
	"delivery_notes.get":   SecurityOperator,

	// Circulation
	"checkouts.return":  SecurityOperator,
	"checkouts.lost":    SecurityOperator,
	"checkouts.recover": SecurityOperator,

	// Inventory administration
	"equipment.create":            SecurityAdmin,
	"equipment.stock":             SecurityAdmin,
	"equipment.instances":         SecurityAdmin,
	"equipment.maintenance.start": SecurityAdmin,
	"equipment.maintenance.end":   SecurityAdmin,
	"equipment.retire":            SecurityAdmin,
	"admin.reconcile":             SecurityAdmin,
	"admin.mark_overdue":          SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
