package syncjob

import "github.com/caseflow-dev/caseflow/internal/models"

// crmStatus maps local workflow vocabulary to the CRM's status vocabulary.
// The table is fixed; an unmapped local status is a programming error caught
// before the job is enqueued.
var crmStatus = map[string]string{
	models.WorkflowPending:      "Open",
	models.WorkflowInValidation: "In Validation",
	models.WorkflowApproved:     "Closed",
	models.WorkflowRejected:     "Open",
	models.ClosureRequested:     "Pending Closure",
	models.ClosureClosed:        "Closed",
	// models.TaskPending shares "pending" with models.WorkflowPending above.
	models.TaskInProgress:      "In Progress",
	models.TaskCompleted:       "Closed",
	models.TaskCancelled:       "Cancelled",
	models.DelegationDelegated: "Assigned",
}

// CRMStatus translates a local status into the remote vocabulary.
func CRMStatus(local string) (string, bool) {
	remote, ok := crmStatus[local]
	return remote, ok
}

// moduleFor maps entity kinds to CRM module names.
var moduleFor = map[string]string{
	models.EntityCase: "Cases",
	models.EntityTask: "Tasks",
}
