package dividends

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Command names served over the node-style JSON-RPC endpoint.
const (
	CommandCreate = "createdividendsdatabase"
	CommandGet    = "getdividenddatabase"
)

var usage = map[string]string{
	CommandCreate: CommandCreate + " \"asset_name\" block_height\n\nAdds a snapshot check for asset_name at a future block_height.",
	CommandGet:    CommandGet + " block_height\n\nReturns the asset names with snapshot checks at block_height.",
}

// Commands returns the supported command names in sorted order.
func Commands() []string {
	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs a command with positional JSON params, as received from a
// JSON-RPC request.
func (s *Service) Execute(ctx context.Context, method string, params []json.RawMessage) (any, error) {
	help, ok := usage[method]
	if !ok {
		return nil, newRequestError(CodeMethodNotFound, fmt.Sprintf("Method not found: %s", method), nil)
	}
	switch method {
	case CommandCreate:
		if len(params) != 2 {
			return nil, newRequestError(CodeMiscError, help, nil)
		}
		var req CreateRequest
		if err := json.Unmarshal(params[0], &req.AssetName); err != nil {
			return nil, newRequestError(CodeTypeError, "asset_name must be a string", err)
		}
		if err := json.Unmarshal(params[1], &req.BlockHeight); err != nil {
			return nil, newRequestError(CodeTypeError, "block_height must be an integer", err)
		}
		return s.CreateSnapshotCheck(ctx, req)
	default:
		if len(params) != 1 {
			return nil, newRequestError(CodeMiscError, help, nil)
		}
		var req GetRequest
		if err := json.Unmarshal(params[0], &req.BlockHeight); err != nil {
			return nil, newRequestError(CodeTypeError, "block_height must be an integer", err)
		}
		return s.GetSnapshotChecks(ctx, req)
	}
}
