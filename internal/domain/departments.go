package domain

// Option lists offered by the report toolbars.
var (
	JobStatuses   = []string{"To Be Loaded", "On Water", "Under Clearance"}
	StatusList    = []string{"New", "Delivered", "Cancelled"}
	PaymentStates = []string{PaymentFullPaid, PaymentNotPaid}
	// InvoiceStatuses is the client invoice statusType filter.
	InvoiceStatuses = []string{"Invoices", "Drafts"}
)

const (
	// FilterAll is the toolbar choice that disables a filter.
	FilterAll = "All"

	PaymentFullPaid = "Full Paid"
	PaymentNotPaid  = "Not Paid"
)

// Department maps a business unit name to the backend DepartmentId. Sea Cross
// shares Sea Import's id and is told apart by JobType.
type Department struct {
	Name    string
	ID      int64
	JobType int64 // 0 when the department is identified by ID alone
}

var Departments = []Department{
	{Name: "Sea Import", ID: 16},
	{Name: "Sea Export", ID: 18},
	{Name: "Air Import", ID: 5},
	{Name: "Air Export", ID: 2},
	{Name: "Sea Clearance", ID: 17},
	{Name: "Air Clearance", ID: 8},
	{Name: "Land Freight", ID: 6},
	{Name: "Sea Cross", ID: 16, JobType: 3},
}

// DepartmentNames returns the department names in toolbar order.
func DepartmentNames() []string {
	out := make([]string, len(Departments))
	for i, d := range Departments {
		out[i] = d.Name
	}
	return out
}

// DepartmentByName looks a department up by its display name. "All" and
// unknown names report ok=false.
func DepartmentByName(name string) (Department, bool) {
	for _, d := range Departments {
		if d.Name == name {
			return d, true
		}
	}
	return Department{}, false
}
