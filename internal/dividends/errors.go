package dividends

import (
	"errors"
	"fmt"
)

// RPC error codes returned to callers.
const (
	CodeMiscError        = -1
	CodeTypeError        = -3
	CodeInvalidParameter = -8
	CodeDatabaseError    = -20
	CodeMethodNotFound   = -32601
)

const (
	msgAssetIndexRequired = "Asset Index is required to make a dividend call. To enable assetindex, run the wallet with -assetindex or add assetindex from your raven.conf and perform a -reindex"
	msgInvalidAssetName   = "Invalid asset_name: Please use a valid asset_name"
	msgAssetTypeForbidden = "Invalid asset_name: OWNER, UNQIUE, MSGCHANNEL assets are not allowed for this call"
	msgNegativeHeight     = "Invalid block_height: Block heights must be a positive number"
	msgHeightNotAhead     = "Invalid block_height: Block heights must be greater than the current height of: %d"
	msgDatabaseMissing    = "Dividend database is not setup. Please restart wallet to try again"
	msgWriteFailed        = "Failed to add Snapshot Check to database"
	msgReadFailed         = "Failed to read Snapshot Checks from database"
	msgHeightUnavailable  = "Unable to determine the current block height"

	// MsgSnapshotCheckAdded is the result text of a successful create.
	MsgSnapshotCheckAdded = "Dividend Snapshot Check was successfully added to the database"
)

// RequestError is a caller-facing failure with an RPC error code.
type RequestError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func newRequestError(code int, message string, cause error) *RequestError {
	return &RequestError{Code: code, Message: message, Err: cause}
}

// CodeOf returns the RPC code carried by err, or CodeMiscError when err is not
// a *RequestError.
func CodeOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Code
	}
	return CodeMiscError
}
