package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/csg33k/freight-reports/internal/domain"
)

func TestJobDecodesLenientScalars(t *testing.T) {
	raw := `{
		"_id": "65f0c1",
		"JobNo": 240117,
		"JobDate": "2024-01-17T08:30:00.000Z",
		"DepartmentId": "16",
		"JobType": 3,
		"TotalProfit": "1250.75",
		"FullPaid": 1,
		"Eta": "",
		"Ata": null,
		"Arrival": "2024-02-01",
		"vessel": "MSC AURORA"
	}`
	var j domain.Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if j.JobNo != "240117" {
		t.Fatalf("JobNo = %q", j.JobNo)
	}
	if j.DepartmentID != 16 || j.JobType != 3 {
		t.Fatalf("department = %d/%d", j.DepartmentID, j.JobType)
	}
	if j.TotalProfit != 1250.75 {
		t.Fatalf("TotalProfit = %v", j.TotalProfit)
	}
	if !j.FullPaid {
		t.Fatalf("FullPaid not decoded")
	}
	if !j.Eta.IsZero() || !j.Ata.IsZero() {
		t.Fatalf("empty dates should stay zero")
	}
	want := time.Date(2024, 1, 17, 8, 30, 0, 0, time.UTC)
	if !j.JobDate.Equal(want) {
		t.Fatalf("JobDate = %v", j.JobDate)
	}
	if got := j.Value("Arrival").(time.Time); got.Format("2006-01-02") != "2024-02-01" {
		t.Fatalf("Arrival = %v", got)
	}
	if j.Value("vessel") != "MSC AURORA" {
		t.Fatalf("vessel = %v", j.Value("vessel"))
	}
	if j.Key() != "65f0c1" {
		t.Fatalf("Key = %q", j.Key())
	}
}

func TestJobRejectsBadDate(t *testing.T) {
	var j domain.Job
	if err := json.Unmarshal([]byte(`{"JobDate":"17/01/2024"}`), &j); err == nil {
		t.Fatalf("expected an error for an unknown date layout")
	}
}

func TestEmptyContainerFallsThroughToJob(t *testing.T) {
	raw := `{"JobNo":"7","DepartmentName":"Air Import","ArrivalDays":"4","TejrimDays":0,"dtCntrToCnee":"2024-05-02"}`
	var c domain.EmptyContainer
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Value("ArrivalDays") != int64(4) {
		t.Fatalf("ArrivalDays = %v", c.Value("ArrivalDays"))
	}
	if c.Value("DepartmentName") != "Air Import" {
		t.Fatalf("DepartmentName = %v", c.Value("DepartmentName"))
	}
	if c.Key() != "7" {
		t.Fatalf("Key = %q", c.Key())
	}
	if c.Value("dtCntrToCnee").(time.Time).IsZero() {
		t.Fatalf("dtCntrToCnee not decoded")
	}
}

func TestClientInvoiceInvoicesField(t *testing.T) {
	var c domain.ClientInvoice
	raw := `{"JobNo":"88","Invoices":[{"InvoiceNo":1001,"TotalInvoiceAmount":"300","Currency":"SAR"}]}`
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(c.Invoices) != 1 || c.Invoices[0].InvoiceNo != "1001" {
		t.Fatalf("invoices = %+v", c.Invoices)
	}
	if c.Invoices[0].Amount() != 300 || c.Invoices[0].CurrencyLabel() != "SAR" {
		t.Fatalf("amount/currency = %v %q", c.Invoices[0].Amount(), c.Invoices[0].CurrencyLabel())
	}
	if c.Value("Invoices") != int64(1) {
		t.Fatalf("invoice count = %v", c.Value("Invoices"))
	}

	var summary domain.ClientInvoice
	if err := json.Unmarshal([]byte(`{"JobNo":"89","Invoices":"2 invoices"}`), &summary); err != nil {
		t.Fatalf("unmarshal summary form: %v", err)
	}
	if len(summary.Invoices) != 0 {
		t.Fatalf("non-array Invoices should decode empty")
	}
}

func TestQueryValuesOmitZero(t *testing.T) {
	q := domain.Query{Limit: 100, DepartmentID: 16, JobType: 3, FullPaid: "false", SortBy: "OrderNo", SortOrder: "asc"}
	got := q.Values()
	if got.Get("page") != "" || got.Get("statusType") != "" {
		t.Fatalf("zero values leaked: %v", got)
	}
	if got.Get("departmentId") != "16" || got.Get("jobType") != "3" || got.Get("fullPaid") != "false" {
		t.Fatalf("values = %v", got)
	}
	if q.Key() != "departmentId=16&fullPaid=false&jobType=3&limit=100&sortBy=OrderNo&sortOrder=asc" {
		t.Fatalf("Key = %q", q.Key())
	}
	if (domain.Query{}).Key() != "" {
		t.Fatalf("empty query key should be empty")
	}
}

func TestDepartmentByName(t *testing.T) {
	d, ok := domain.DepartmentByName("Sea Cross")
	if !ok || d.ID != 16 || d.JobType != 3 {
		t.Fatalf("Sea Cross = %+v %v", d, ok)
	}
	if _, ok := domain.DepartmentByName(domain.FilterAll); ok {
		t.Fatalf("All should not resolve to a department")
	}
	if names := domain.DepartmentNames(); len(names) != len(domain.Departments) || names[0] != "Sea Import" {
		t.Fatalf("names = %v", names)
	}
}
