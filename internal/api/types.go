package api

import "encoding/json"

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// IPFSStatus summarizes the lifecycle supervisor.
type IPFSStatus struct {
	Enabled           bool   `json:"enabled"`
	State             string `json:"state"`
	Version           string `json:"version,omitempty"`
	PID               int    `json:"pid,omitempty"`
	SupervisorRunning bool   `json:"supervisor_running"`
	ForceStopped      bool   `json:"force_stopped"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	LedgerPath   string             `json:"ledger_path"`
	LockFilePath string             `json:"lock_file_path"`
	LogPath      string             `json:"log_path,omitempty"`
	IPFS         IPFSStatus         `json:"ipfs"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// StatusLine is one labelled row of a status view.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missing_required"`
	MissingOptional int    `json:"missing_optional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// AddRequest carries inline content to store.
type AddRequest struct {
	Data string `json:"data"`
	Pin  bool   `json:"pin"`
}

// AddResponse reports the content id of stored data.
type AddResponse struct {
	Hash   string `json:"hash"`
	Size   int64  `json:"size"`
	Pinned bool   `json:"pinned"`
}

// StatResponse reports the cumulative size of an object.
type StatResponse struct {
	ContentID      string `json:"content_id"`
	CumulativeSize int64  `json:"cumulative_size"`
}

// SnapshotCheckRequest asks for a snapshot check at a future height.
type SnapshotCheckRequest struct {
	AssetName   string `json:"asset_name"`
	BlockHeight int64  `json:"block_height"`
}

// SnapshotCheckResponse carries the result text of a create.
type SnapshotCheckResponse struct {
	Message string `json:"message"`
}

// SnapshotChecksResponse lists the assets recorded for a height.
type SnapshotChecksResponse struct {
	BlockHeight int64    `json:"block_height"`
	AssetNames  []string `json:"asset_names"`
}

// SnapshotHeightsResponse lists heights with at least one check.
type SnapshotHeightsResponse struct {
	Heights []int64 `json:"heights"`
}

// ErrorResponse is the error payload for HTTP handlers.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// RPCRequest is a node-style JSON-RPC request with positional params.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc,omitempty"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// RPCError is the error member of an RPCResponse.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCResponse mirrors the node's JSON-RPC reply, with result and error both present.
type RPCResponse struct {
	Result any             `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     json.RawMessage `json:"id"`
}
