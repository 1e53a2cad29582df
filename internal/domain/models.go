package domain

import (
	"net/url"
	"strconv"
	"time"
)

// Record is a read-only row of a report. Value is addressed by the backend's
// JSON field name so column layouts can be declared as data.
type Record interface {
	Key() string
	Value(field string) any
}

// Job is the shipment projection shared by the total profit, job status and
// ongoing jobs reports.
type Job struct {
	ID                 FlexString `json:"_id,omitempty"`
	JobNo              FlexString `json:"JobNo"`
	JobDate            Date       `json:"JobDate"`
	CustomerName       string     `json:"CustomerName,omitempty"`
	ConsigneeName      string     `json:"ConsigneeName,omitempty"`
	DepartmentName     string     `json:"DepartmentName,omitempty"`
	DepartmentID       FlexInt    `json:"DepartmentId"`
	StatusType         string     `json:"StatusType,omitempty"`
	TotalProfit        FlexFloat  `json:"TotalProfit"`
	Eta                Date       `json:"Eta"`
	Ata                Date       `json:"Ata"`
	Arrival            Date       `json:"Arrival"`
	UserName           string     `json:"UserName,omitempty"`
	Notes              string     `json:"Notes,omitempty"`
	CountryOfDeparture string     `json:"CountryOfDeparture,omitempty"`
	Departure          string     `json:"Departure,omitempty"`
	Destination        string     `json:"Destination,omitempty"`
	ReferenceNo        string     `json:"ReferenceNo,omitempty"`
	Vessel             string     `json:"vessel,omitempty"`
	TotalInvoices      FlexFloat  `json:"TotalInvoices"`
	TotalCosts         FlexFloat  `json:"TotalCosts"`
	MemberOf           string     `json:"MemberOf,omitempty"`
	JobType            FlexInt    `json:"JobType"`
	FullPaid           FlexBool   `json:"FullPaid"`
	PaymentDate        Date       `json:"PaymentDate"`
	PaidDate           Date       `json:"PaidDate"`
	CreatedAt          Date       `json:"createdAt"`
	UpdatedAt          Date       `json:"updatedAt"`
}

// Key prefers the document id and falls back to the job number.
func (j Job) Key() string {
	if j.ID != "" {
		return string(j.ID)
	}
	return string(j.JobNo)
}

func (j Job) Value(field string) any {
	switch field {
	case "_id":
		return string(j.ID)
	case "JobNo":
		return string(j.JobNo)
	case "JobDate":
		return j.JobDate.Time
	case "CustomerName":
		return j.CustomerName
	case "ConsigneeName":
		return j.ConsigneeName
	case "DepartmentName":
		return j.DepartmentName
	case "DepartmentId":
		return int64(j.DepartmentID)
	case "StatusType":
		return j.StatusType
	case "TotalProfit":
		return float64(j.TotalProfit)
	case "Eta":
		return j.Eta.Time
	case "Ata":
		return j.Ata.Time
	case "Arrival":
		return j.Arrival.Time
	case "UserName":
		return j.UserName
	case "Notes":
		return j.Notes
	case "CountryOfDeparture":
		return j.CountryOfDeparture
	case "Departure":
		return j.Departure
	case "Destination":
		return j.Destination
	case "ReferenceNo":
		return j.ReferenceNo
	case "vessel":
		return j.Vessel
	case "TotalInvoices":
		return float64(j.TotalInvoices)
	case "TotalCosts":
		return float64(j.TotalCosts)
	case "MemberOf":
		return j.MemberOf
	case "JobType":
		return int64(j.JobType)
	case "FullPaid":
		return bool(j.FullPaid)
	case "PaymentDate":
		return j.PaymentDate.Time
	case "PaidDate":
		return j.PaidDate.Time
	case "createdAt":
		return j.CreatedAt.Time
	case "updatedAt":
		return j.UpdatedAt.Time
	}
	return nil
}

// EmptyContainer is a job whose container still has to be returned, with the
// day counters the operations team tracks.
type EmptyContainer struct {
	Job
	TejrimDate       Date       `json:"TejrimDate"`
	CntrToCneeDate   Date       `json:"dtCntrToCnee"`
	ArrivalDays      FlexInt    `json:"ArrivalDays"`
	TejrimDays       FlexInt    `json:"TejrimDays"`
	DiffCntrToCnee   FlexInt    `json:"DiffCntrToCnee"`
	MissingDocuments string     `json:"MissingDocuments,omitempty"`
	ContainerNo      string     `json:"ContainerNo,omitempty"`
	CarrierName      string     `json:"CarrierName,omitempty"`
	FullPaidDate     Date       `json:"FullPaidDate"`
	PaidDO           FlexString `json:"PaidDO,omitempty"`
	Mbol             string     `json:"Mbol,omitempty"`
}

func (c EmptyContainer) Value(field string) any {
	switch field {
	case "TejrimDate":
		return c.TejrimDate.Time
	case "dtCntrToCnee":
		return c.CntrToCneeDate.Time
	case "ArrivalDays":
		return int64(c.ArrivalDays)
	case "TejrimDays":
		return int64(c.TejrimDays)
	case "DiffCntrToCnee":
		return int64(c.DiffCntrToCnee)
	case "MissingDocuments":
		return c.MissingDocuments
	case "ContainerNo":
		return c.ContainerNo
	case "CarrierName":
		return c.CarrierName
	case "FullPaidDate":
		return c.FullPaidDate.Time
	case "PaidDO":
		return string(c.PaidDO)
	case "Mbol":
		return c.Mbol
	}
	return c.Job.Value(field)
}

// InvoiceDetail is one invoice raised against a job.
type InvoiceDetail struct {
	ID            FlexString `json:"_id,omitempty"`
	JobNo         FlexString `json:"JobNo"`
	InvoiceNo     FlexString `json:"InvoiceNo"`
	InvoiceDate   Date       `json:"InvoiceDate"`
	DueDate       Date       `json:"DueDate"`
	CurrencyCode  string     `json:"CurrencyCode,omitempty"`
	Currency      string     `json:"Currency,omitempty"`
	TotalAmount   FlexFloat  `json:"TotalAmount"`
	InvoiceAmount FlexFloat  `json:"TotalInvoiceAmount"`
	TotalReceived FlexFloat  `json:"TotalReceived"`
	TotalDue      FlexFloat  `json:"TotalDue"`
	InvoiceStatus string     `json:"InvoiceStatus,omitempty"`
	PaymentStatus string     `json:"PaymentStatus,omitempty"`
	ClientName    string     `json:"ClientName,omitempty"`
	Description   string     `json:"Description,omitempty"`
}

// CurrencyLabel returns whichever currency field the backend filled in.
func (d InvoiceDetail) CurrencyLabel() string {
	if d.CurrencyCode != "" {
		return d.CurrencyCode
	}
	return d.Currency
}

// Amount returns the invoice total, whichever field carried it.
func (d InvoiceDetail) Amount() float64 {
	if d.TotalAmount != 0 {
		return float64(d.TotalAmount)
	}
	return float64(d.InvoiceAmount)
}

// InvoiceList decodes an embedded invoice array. Some backend versions put a
// summary string in the same field; anything that is not an array decodes to
// an empty list.
type InvoiceList []InvoiceDetail

func (l *InvoiceList) UnmarshalJSON(b []byte) error {
	var items []InvoiceDetail
	if err := jsonUnmarshalArray(b, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// ClientInvoice is a job seen from the billing side.
type ClientInvoice struct {
	ID             FlexString  `json:"_id,omitempty"`
	JobNo          FlexString  `json:"JobNo"`
	Customer       string      `json:"Customer,omitempty"`
	Consignee      string      `json:"Consignee,omitempty"`
	DepartmentName string      `json:"DepartmentName,omitempty"`
	DepartmentID   FlexInt     `json:"DepartmentId"`
	JobType        FlexInt     `json:"JobType"`
	StatusType     string      `json:"StatusType,omitempty"`
	Pol            string      `json:"Pol,omitempty"`
	Pod            string      `json:"Pod,omitempty"`
	Etd            Date        `json:"Etd"`
	Eta            Date        `json:"Eta"`
	Atd            Date        `json:"Atd"`
	Ata            Date        `json:"Ata"`
	TotalInvoices  FlexFloat   `json:"TotalInvoices"`
	TotalProfit    FlexFloat   `json:"TotalProfit"`
	Notes          string      `json:"Notes,omitempty"`
	Vessel         string      `json:"vessel,omitempty"`
	Invoices       InvoiceList `json:"Invoices,omitempty"`
}

// Key uses the job number; the client invoice grid is keyed by it.
func (c ClientInvoice) Key() string {
	if c.JobNo != "" {
		return string(c.JobNo)
	}
	return string(c.ID)
}

func (c ClientInvoice) Value(field string) any {
	switch field {
	case "_id":
		return string(c.ID)
	case "JobNo":
		return string(c.JobNo)
	case "Customer":
		return c.Customer
	case "Consignee":
		return c.Consignee
	case "DepartmentName":
		return c.DepartmentName
	case "DepartmentId":
		return int64(c.DepartmentID)
	case "JobType":
		return int64(c.JobType)
	case "StatusType":
		return c.StatusType
	case "Pol":
		return c.Pol
	case "Pod":
		return c.Pod
	case "Etd":
		return c.Etd.Time
	case "Eta":
		return c.Eta.Time
	case "Atd":
		return c.Atd.Time
	case "Ata":
		return c.Ata.Time
	case "TotalInvoices":
		return float64(c.TotalInvoices)
	case "TotalProfit":
		return float64(c.TotalProfit)
	case "Notes":
		return c.Notes
	case "vessel":
		return c.Vessel
	case "Invoices":
		return int64(len(c.Invoices))
	}
	return nil
}

// Pagination is the backend's paging block.
type Pagination struct {
	Page             int     `json:"page"`
	Limit            int     `json:"limit"`
	Total            int     `json:"total"`
	TotalPages       int     `json:"totalPages"`
	GrandTotalProfit float64 `json:"grandTotalProfit"`
}

// Page is one decoded report response.
type Page[T any] struct {
	Items      []T
	Pagination *Pagination
	// TotalProfit is the backend-computed profit total, when it sends one.
	TotalProfit *float64
}

// Query carries the report query-string parameters. Zero values are left
// out of the request.
type Query struct {
	Page          int
	Limit         int
	Status        string
	StatusType    string
	JobStatusType string
	DepartmentID  int64
	JobType       int64
	FullPaid      string // "true", "false" or empty
	SortBy        string
	SortOrder     string
}

func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.StatusType != "" {
		v.Set("statusType", q.StatusType)
	}
	if q.JobStatusType != "" {
		v.Set("jobStatusType", q.JobStatusType)
	}
	if q.DepartmentID > 0 {
		v.Set("departmentId", strconv.FormatInt(q.DepartmentID, 10))
	}
	if q.JobType > 0 {
		v.Set("jobType", strconv.FormatInt(q.JobType, 10))
	}
	if q.FullPaid != "" {
		v.Set("fullPaid", q.FullPaid)
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sortOrder", q.SortOrder)
	}
	return v
}

// Key is a canonical form of the query, used to key cached snapshots.
func (q Query) Key() string {
	return q.Values().Encode()
}

// SyncRun records one backend refresh.
type SyncRun struct {
	ID         int64
	Resource   string
	StartedAt  time.Time
	FinishedAt time.Time
	OK         bool
	Message    string
}

// Snapshot is the last successful payload for a resource and query.
type Snapshot struct {
	Resource  string
	QueryKey  string
	Payload   []byte
	FetchedAt time.Time
}
