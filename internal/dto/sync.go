package dto

import "github.com/wemake-app/wemake-api/internal/services"

// OfflineBatchRequest carries tasks created while the client was offline
type OfflineBatchRequest struct {
	Tasks []CreateTaskRequest `json:"tasks"`
}

// OfflineBatchResponse reports each item of an offline batch
type OfflineBatchResponse struct {
	Results  []services.OfflineTaskResult `json:"results"`
	Accepted int                          `json:"accepted"`
	Rejected int                          `json:"rejected"`
}

// SyncStatusResponse describes the replay backlog
type SyncStatusResponse struct {
	Pending   int                    `json:"pending"`
	Scheduler map[string]interface{} `json:"scheduler"`
}
