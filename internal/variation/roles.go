package variation

// Abstract roles consumers ask for. Each maps to one period code.
const (
	RoleDisplay = "display" // primary display figure
	RoleAlert   = "alert"   // alert basis
	RoleReport  = "report"  // periodic-report basis
)

// DefaultPeriodCode is the fallback for unmapped or unrecognized
// roles.
const DefaultPeriodCode = "1d"

// Roles maps abstract roles to period codes.
type Roles map[string]string

// DefaultRoles is used when the alert configuration defines no role
// mapping of its own.
func DefaultRoles() Roles {
	return Roles{
		RoleDisplay: "1d",
		RoleAlert:   "1d",
		RoleReport:  "30d",
	}
}

// Resolve returns the period code for a role, falling back to
// DefaultPeriodCode for unknown roles rather than failing.
func (r Roles) Resolve(role string) string {
	if code, ok := r[role]; ok && code != "" {
		return code
	}
	return DefaultPeriodCode
}

// Select picks the result with the given period code from a computed
// set. A code absent from the set yields NotAvailable.
func Select(results []Result, code string) Result {
	for _, res := range results {
		if res.Code == code {
			return res
		}
	}
	return NotAvailable(code)
}
