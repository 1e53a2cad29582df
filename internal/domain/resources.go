package domain

// Backend report resources. They name both the report endpoint and the sync
// endpoint (sync-{resource}).
const (
	ResourceTotalProfits    = "total-profits"
	ResourceJobStatus       = "job-status"
	ResourceEmptyContainers = "empty-containers"
	ResourceClientInvoices  = "client-invoices"
	ResourceOngoingJobs     = "ongoing-jobs"
)
