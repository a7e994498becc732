package routing

import "strings"

// UnknownDepartment is returned for labels without a routing entry,
// including the manual-review and unknown sentinels.
const UnknownDepartment = "Unknown"

// DefaultDepartments is the Bengaluru deployment's label to agency table.
var DefaultDepartments = map[string]string{
	"pothole_road_crack":          "Public Works Department (PWD)",
	"damaged_road_sign":           "Transport Department (RTO / Traffic Engineering)",
	"garbage":                     "BBMP – Solid Waste Management (SWM)",
	"graffiti":                    "BBMP – Ward Maintenance / City Beautification Cell",
	"illegal_parking":             "Traffic Police (Bengaluru Traffic Police)",
	"fallen_trees":                "BBMP – Forest / Horticulture Wing",
	"damaged_concrete_structures": "PWD / BBMP Engineering",
	"damaged_electric_poles":      "BESCOM (Electricity Supply Company)",
	"water_logging":               "BBMP – Storm Water Drain (SWD) Dept",
	"no_electricity":              "BESCOM",
}

// Router is an immutable label to department lookup, safe for concurrent use.
type Router struct {
	departments map[string]string
}

// New copies table so later mutation by the caller has no effect.
func New(table map[string]string) *Router {
	departments := make(map[string]string, len(table))
	for label, dept := range table {
		label = strings.TrimSpace(label)
		dept = strings.TrimSpace(dept)
		if label == "" || dept == "" {
			continue
		}
		departments[label] = dept
	}
	return &Router{departments: departments}
}

func (r *Router) Route(label string) string {
	if dept, ok := r.departments[label]; ok {
		return dept
	}
	return UnknownDepartment
}

// Departments returns the distinct department names, unordered.
func (r *Router) Departments() []string {
	seen := make(map[string]bool, len(r.departments))
	var out []string
	for _, dept := range r.departments {
		if !seen[dept] {
			seen[dept] = true
			out = append(out, dept)
		}
	}
	return out
}
