package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"

	"assetnode/internal/config"
	"assetnode/internal/logging"
)

// AddResult describes content stored by the daemon.
type AddResult struct {
	Hash   string `json:"hash"`
	Size   int64  `json:"size"`
	Pinned bool   `json:"pinned"`
}

// Valid reports whether the daemon returned a usable hash and size.
func (r AddResult) Valid() bool {
	return r.Hash != "" && r.Size > 0
}

// Client wraps the daemon's HTTP RPC API.
type Client struct {
	enabled     bool
	baseURL     string
	http        *http.Client
	maxDataSize int
	logger      *slog.Logger
	metrics     *Metrics
}

// NewClient builds a client for the API address in cfg.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	o := collectOptions(opts)
	return newClient(cfg, logger, o, nil)
}

func newClient(cfg *config.Config, logger *slog.Logger, o options, metrics *Metrics) *Client {
	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = "http://" + cfg.IPFSAPIAddress()
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.IPFSRequestTimeout()}
	}
	return &Client{
		enabled:     cfg.IPFS.Enabled,
		baseURL:     strings.TrimRight(baseURL, "/") + "/api/v0/",
		http:        httpClient,
		maxDataSize: cfg.IPFS.MaxDataSize,
		logger:      logging.NewComponentLogger(logger, "ipfs-client"),
		metrics:     metrics,
	}
}

// Fetch returns the bytes stored under contentID.
func (c *Client) Fetch(ctx context.Context, contentID string) ([]byte, error) {
	const op = "cat"
	if !c.enabled {
		c.logger.Debug("fetch skipped; ipfs disabled", logging.ContentID(contentID))
		return nil, disabledError(op)
	}
	if strings.TrimSpace(contentID) == "" {
		return nil, newError(op, KindInvalidInput, errors.New("content id required"))
	}
	body, err := c.post(ctx, op, "cat", url.Values{"arg": {contentID}}, "", nil)
	c.metrics.observeOperation(op, err)
	return body, err
}

// AddData stores data and, when alsoPin is set, pins the resulting hash.
func (c *Client) AddData(ctx context.Context, data []byte, alsoPin bool) (AddResult, error) {
	const op = "add"
	if !c.enabled {
		c.logger.Debug("add skipped; ipfs disabled")
		return AddResult{}, disabledError(op)
	}
	if len(data) == 0 {
		return AddResult{}, newError(op, KindInvalidInput, errors.New("data is empty"))
	}
	if c.maxDataSize > 0 && len(data) > c.maxDataSize {
		return AddResult{}, newError(op, KindInvalidInput,
			fmt.Errorf("data is %d bytes; limit is %d", len(data), c.maxDataSize))
	}
	return c.add(ctx, "data", bytes.NewReader(data), alsoPin)
}

// AddFile stores the file at path and, when alsoPin is set, pins the resulting hash.
func (c *Client) AddFile(ctx context.Context, path string, alsoPin bool) (AddResult, error) {
	const op = "add"
	if !c.enabled {
		c.logger.Debug("add skipped; ipfs disabled", logging.String("source_path", path))
		return AddResult{}, disabledError(op)
	}
	file, err := os.Open(path)
	if err != nil {
		return AddResult{}, newError(op, KindInvalidInput, fmt.Errorf("open %s: %w", path, err))
	}
	defer file.Close()
	return c.add(ctx, filepath.Base(path), file, alsoPin)
}

func (c *Client) add(ctx context.Context, name string, content io.Reader, alsoPin bool) (AddResult, error) {
	const op = "add"

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	form := multipart.NewWriter(buf)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return AddResult{}, newError(op, KindInvalidInput, fmt.Errorf("build multipart body: %w", err))
	}
	if _, err := io.Copy(part, content); err != nil {
		return AddResult{}, newError(op, KindInvalidInput, fmt.Errorf("read content: %w", err))
	}
	if err := form.Close(); err != nil {
		return AddResult{}, newError(op, KindInvalidInput, fmt.Errorf("build multipart body: %w", err))
	}

	body, err := c.post(ctx, op, "add", url.Values{"pin": {"false"}}, form.FormDataContentType(), bytes.NewReader(buf.B))
	if err != nil {
		c.metrics.observeOperation(op, err)
		return AddResult{}, err
	}
	result, err := parseAddResponse(body)
	c.metrics.observeOperation(op, err)
	if err != nil {
		return AddResult{}, err
	}

	if alsoPin {
		if err := c.Pin(ctx, result.Hash); err != nil {
			logging.WarnWithContext(c.logger, "pin after add failed; content stored unpinned", "ipfs_pin_failed",
				logging.ContentID(result.Hash),
				logging.Error(err),
				logging.String(logging.FieldImpact, "content may be garbage collected by the daemon"),
				logging.String(logging.FieldErrorHint, "retry with `assetnode ipfs pin <id>`"),
			)
		} else {
			result.Pinned = true
		}
	}
	return result, nil
}

// Pin instructs the daemon to retain contentID.
func (c *Client) Pin(ctx context.Context, contentID string) error {
	const op = "pin"
	if !c.enabled {
		c.logger.Debug("pin skipped; ipfs disabled", logging.ContentID(contentID))
		return disabledError(op)
	}
	if strings.TrimSpace(contentID) == "" {
		return newError(op, KindInvalidInput, errors.New("content id required"))
	}
	_, err := c.post(ctx, op, "pin/add", url.Values{"arg": {contentID}}, "", nil)
	c.metrics.observeOperation(op, err)
	return err
}

// Stat returns the cumulative size of the object named by contentID.
func (c *Client) Stat(ctx context.Context, contentID string) (int64, error) {
	const op = "stat"
	if !c.enabled {
		c.logger.Debug("stat skipped; ipfs disabled", logging.ContentID(contentID))
		return 0, disabledError(op)
	}
	if strings.TrimSpace(contentID) == "" {
		return 0, newError(op, KindInvalidInput, errors.New("content id required"))
	}
	body, err := c.post(ctx, op, "object/stat", url.Values{"arg": {contentID}}, "", nil)
	if err == nil {
		var stat struct {
			CumulativeSize *int64 `json:"CumulativeSize"`
		}
		switch {
		case json.Unmarshal(body, &stat) != nil:
			err = newError(op, KindProtocol, errors.New("decode object stat response"))
		case stat.CumulativeSize == nil:
			err = newError(op, KindProtocol, errors.New("object stat response missing CumulativeSize"))
		default:
			c.metrics.observeOperation(op, nil)
			return *stat.CumulativeSize, nil
		}
	}
	c.metrics.observeOperation(op, err)
	return 0, err
}

func (c *Client) post(ctx context.Context, op, endpoint string, query url.Values, contentType string, body io.Reader) ([]byte, error) {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, newError(op, KindInvalidInput, fmt.Errorf("build request: %w", err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newError(op, KindTransport, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(op, KindTransport, fmt.Errorf("read response: %w", err))
	}
	c.logger.Debug("ipfs api call",
		logging.String("endpoint", endpoint),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(op, KindDaemon, decodeDaemonError(resp.StatusCode, payload))
	}
	return payload, nil
}

// DaemonError is the error body returned by the API on non-2xx responses.
type DaemonError struct {
	Status  int    `json:"-"`
	Message string `json:"Message"`
	Code    int    `json:"Code"`
	Type    string `json:"Type"`
}

func (e *DaemonError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("daemon returned HTTP %d: %s", e.Status, e.Message)
}

func decodeDaemonError(status int, payload []byte) error {
	derr := &DaemonError{Status: status}
	if err := json.Unmarshal(payload, derr); err != nil {
		derr.Message = strings.TrimSpace(string(payload))
		if len(derr.Message) > 200 {
			derr.Message = derr.Message[:200]
		}
	}
	derr.Status = status
	return derr
}

type addObject struct {
	Hash string          `json:"Hash"`
	Size json.RawMessage `json:"Size"`
}

// parseAddResponse reads the stream of JSON objects returned by add. The last
// hash and size present win.
func parseAddResponse(body []byte) (AddResult, error) {
	const op = "add"
	var result AddResult
	decoder := json.NewDecoder(bytes.NewReader(body))
	for {
		var obj addObject
		err := decoder.Decode(&obj)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return AddResult{}, newError(op, KindProtocol, fmt.Errorf("decode add response: %w", err))
		}
		if obj.Hash != "" {
			result.Hash = obj.Hash
		}
		if size, ok := parseSize(obj.Size); ok {
			result.Size = size
		}
	}
	if result.Hash == "" {
		return AddResult{}, newError(op, KindProtocol, errors.New("add response missing hash"))
	}
	if result.Size <= 0 {
		return AddResult{}, newError(op, KindProtocol, errors.New("add response missing size"))
	}
	return result, nil
}

func parseSize(raw json.RawMessage) (int64, bool) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return 0, false
	}
	size, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}
