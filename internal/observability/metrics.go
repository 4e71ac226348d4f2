package observability

const (
	MWorkflowRequests   MetricKey = "workflow_requests_total"
	MWorkflowDuration   MetricKey = "workflow_duration_seconds"
	MAPIRequests        MetricKey = "api_requests_total"
	MAPIRequestDuration MetricKey = "api_request_duration_seconds"
	MSessionInvalidated MetricKey = "session_invalidated_total"
)
