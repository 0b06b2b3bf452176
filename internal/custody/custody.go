// Package custody is an HTTP client for the custody service: the external
// process that actually holds private key material and signs transactions
// and UserOperations on the operator's behalf. Every request carries the
// same envelope regardless of operation, so the client centers on one
// generic call() plus a typed method per operation the runtime consumes.
package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout is used for operations that don't need a longer bound
// (most wallet and balance calls).
const DefaultTimeout = 30 * time.Second

// Client talks to a custody service over HTTP using the shared envelope
// protocol: {operation, params, auth, wallet_id?, chain_id, request_id, timestamp}
// request, {success, data?, error?} response.
type Client struct {
	baseURL     string
	processAddr string
	httpClient  *http.Client
	logger      *logrus.Logger
}

// New builds a Client. processAddr identifies this operator process in the
// auth.process_address field of every request.
func New(baseURL, processAddr string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		processAddr: processAddr,
		httpClient:  &http.Client{},
		logger:      logger,
	}
}

// Error is returned when the custody service answers with success=false.
type Error struct {
	Operation string
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("custody: %s failed: %s", e.Operation, e.Message)
}

type envelope struct {
	Operation string      `json:"operation"`
	Params    interface{} `json:"params"`
	Auth      authBlock   `json:"auth"`
	WalletID  *string     `json:"wallet_id"`
	ChainID   *int64      `json:"chain_id"`
	RequestID string      `json:"request_id"`
	Timestamp int64       `json:"timestamp"`
}

type authBlock struct {
	ProcessAddress string  `json:"process_address"`
	Signature      *string `json:"signature"`
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CallOpts customizes one call() invocation.
type CallOpts struct {
	WalletID string
	ChainID  int64
	Timeout  time.Duration
}

// call sends one request envelope and unmarshals the data field into out.
// out may be nil when the caller does not need the response payload.
func (c *Client) call(ctx context.Context, operation string, params interface{}, opts CallOpts, out interface{}) error {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	env := envelope{
		Operation: operation,
		Params:    params,
		Auth:      authBlock{ProcessAddress: c.processAddr},
		ChainID:   nonZeroChainID(opts.ChainID),
		RequestID: fmt.Sprintf("operator-%s", uuid.New().String()),
		Timestamp: time.Now().Unix(),
	}
	if opts.WalletID != "" {
		env.WalletID = &opts.WalletID
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("custody: encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("custody: build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.WithField("operation", operation).Debug("sending custody request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("custody: %s transport: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("custody: %s read body: %w", operation, err)
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("custody: %s parse response: %w", operation, err)
	}
	if !r.Success {
		msg := "unknown error"
		if r.Error != nil && r.Error.Message != "" {
			msg = r.Error.Message
		}
		return &Error{Operation: operation, Message: msg}
	}
	if out != nil && len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, out); err != nil {
			return fmt.Errorf("custody: %s decode data: %w", operation, err)
		}
	}
	return nil
}

func nonZeroChainID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
