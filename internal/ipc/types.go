package ipc

import "assetnode/internal/api"

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon and ends the host process.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// StatusResponse represents combined daemon and supervisor status.
type StatusResponse = api.DaemonStatus

// IPFSControlRequest starts or stops the ipfs supervisor.
type IPFSControlRequest struct{}

// IPFSControlResponse reports the supervisor state after the request.
type IPFSControlResponse struct {
	OK      bool   `json:"ok"`
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

// FetchRequest names content to fetch.
type FetchRequest struct {
	ContentID string `json:"content_id"`
}

// FetchResponse carries fetched bytes.
type FetchResponse struct {
	Data []byte `json:"data"`
}

// AddRequest carries inline data to store.
type AddRequest struct {
	Data []byte `json:"data"`
	Pin  bool   `json:"pin"`
}

// AddFileRequest names a file on the daemon host to store.
type AddFileRequest struct {
	Path string `json:"path"`
	Pin  bool   `json:"pin"`
}

// AddResponse reports the stored content id.
type AddResponse = api.AddResponse

// PinRequest names content to pin.
type PinRequest struct {
	ContentID string `json:"content_id"`
}

// PinResponse indicates pin result.
type PinResponse struct {
	Pinned bool `json:"pinned"`
}

// StatRequest names content to stat.
type StatRequest struct {
	ContentID string `json:"content_id"`
}

// StatResponse reports cumulative object size.
type StatResponse = api.StatResponse

// SnapshotCreateRequest asks for a snapshot check.
type SnapshotCreateRequest = api.SnapshotCheckRequest

// SnapshotCreateResponse carries the create result or a request error.
type SnapshotCreateResponse struct {
	Message   string `json:"message"`
	ErrorCode int    `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SnapshotGetRequest names a block height.
type SnapshotGetRequest struct {
	BlockHeight int64 `json:"block_height"`
}

// SnapshotGetResponse lists assets at a height or carries a request error.
type SnapshotGetResponse struct {
	AssetNames []string `json:"asset_names"`
	ErrorCode  int      `json:"error_code,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// SnapshotListRequest lists heights with checks.
type SnapshotListRequest struct{}

// SnapshotListResponse lists heights or carries a request error.
type SnapshotListResponse struct {
	Heights   []int64 `json:"heights"`
	ErrorCode int     `json:"error_code,omitempty"`
	Error     string  `json:"error,omitempty"`
}
