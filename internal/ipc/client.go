package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
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
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call(serviceName+".Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reevaluate asks the daemon to re-run detection and enumeration.
func (c *Client) Reevaluate(reason string) (*ReevaluateResponse, error) {
	var resp ReevaluateResponse
	if err := c.client.Call(serviceName+".Reevaluate", ReevaluateRequest{Reason: reason}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetPower forwards a DPMS level to the daemon's encoder.
func (c *Client) SetPower(mode string) (*PowerResponse, error) {
	var resp PowerResponse
	if err := c.client.Call(serviceName+".SetPower", PowerRequest{Mode: mode}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
