package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"assetnode/internal/dividends"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Start requests the daemon to start.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.call("Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop and exit.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IPFSStart starts the ipfs supervisor.
func (c *Client) IPFSStart() (*IPFSControlResponse, error) {
	var resp IPFSControlResponse
	if err := c.call("IPFSStart", IPFSControlRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IPFSStop force-stops the ipfs supervisor.
func (c *Client) IPFSStop() (*IPFSControlResponse, error) {
	var resp IPFSControlResponse
	if err := c.call("IPFSStop", IPFSControlRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fetch returns content bytes.
func (c *Client) Fetch(contentID string) ([]byte, error) {
	var resp FetchResponse
	if err := c.call("Fetch", FetchRequest{ContentID: contentID}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Add stores inline data.
func (c *Client) Add(data []byte, pin bool) (*AddResponse, error) {
	var resp AddResponse
	if err := c.call("Add", AddRequest{Data: data, Pin: pin}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddFile stores a file readable by the daemon.
func (c *Client) AddFile(path string, pin bool) (*AddResponse, error) {
	var resp AddResponse
	if err := c.call("AddFile", AddFileRequest{Path: path, Pin: pin}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pin pins content.
func (c *Client) Pin(contentID string) (*PinResponse, error) {
	var resp PinResponse
	if err := c.call("Pin", PinRequest{ContentID: contentID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stat returns the cumulative size of content.
func (c *Client) Stat(contentID string) (*StatResponse, error) {
	var resp StatResponse
	if err := c.call("Stat", StatRequest{ContentID: contentID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SnapshotCreate records a snapshot check. Validation failures are returned
// as *dividends.RequestError.
func (c *Client) SnapshotCreate(assetName string, blockHeight int64) (string, error) {
	var resp SnapshotCreateResponse
	if err := c.call("SnapshotCreate", SnapshotCreateRequest{AssetName: assetName, BlockHeight: blockHeight}, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", &dividends.RequestError{Code: resp.ErrorCode, Message: resp.Error}
	}
	return resp.Message, nil
}

// SnapshotGet lists the assets recorded at blockHeight.
func (c *Client) SnapshotGet(blockHeight int64) ([]string, error) {
	var resp SnapshotGetResponse
	if err := c.call("SnapshotGet", SnapshotGetRequest{BlockHeight: blockHeight}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &dividends.RequestError{Code: resp.ErrorCode, Message: resp.Error}
	}
	if resp.AssetNames == nil {
		return []string{}, nil
	}
	return resp.AssetNames, nil
}

// SnapshotList lists heights with recorded checks.
func (c *Client) SnapshotList() ([]int64, error) {
	var resp SnapshotListResponse
	if err := c.call("SnapshotList", SnapshotListRequest{}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &dividends.RequestError{Code: resp.ErrorCode, Message: resp.Error}
	}
	return resp.Heights, nil
}
