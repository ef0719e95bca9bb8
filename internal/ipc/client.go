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
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("SoundScout.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("SoundScout.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("SoundScout.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit admits a new job for an owner.
func (c *Client) Submit(owner, source string) (*SubmitResponse, error) {
	var resp SubmitResponse
	req := SubmitRequest{Owner: owner, Source: source}
	if err := c.client.Call("SoundScout.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobStatus returns details for a single job.
func (c *Client) JobStatus(id int64) (*JobStatusResponse, error) {
	var resp JobStatusResponse
	if err := c.client.Call("SoundScout.JobStatus", JobStatusRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobList returns jobs optionally filtered by states or owner.
func (c *Client) JobList(states []string, owner string) (*JobListResponse, error) {
	var resp JobListResponse
	req := JobListRequest{States: states, Owner: owner}
	if err := c.client.Call("SoundScout.JobList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel stops a queued or inflight job.
func (c *Client) Cancel(id int64) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.client.Call("SoundScout.Cancel", CancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlaylistAppend adds a stored track to an owner's playlist.
func (c *Client) PlaylistAppend(owner, name, contentHash string) (*PlaylistAppendResponse, error) {
	var resp PlaylistAppendResponse
	req := PlaylistAppendRequest{Owner: owner, Name: name, ContentHash: contentHash}
	if err := c.client.Call("SoundScout.PlaylistAppend", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlaylistRemove removes a playlist entry by position.
func (c *Client) PlaylistRemove(owner, name string, position int) (*PlaylistRemoveResponse, error) {
	var resp PlaylistRemoveResponse
	req := PlaylistRemoveRequest{Owner: owner, Name: name, Position: position}
	if err := c.client.Call("SoundScout.PlaylistRemove", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlaylistList returns one playlist's entries.
func (c *Client) PlaylistList(owner, name string) (*PlaylistListResponse, error) {
	var resp PlaylistListResponse
	req := PlaylistListRequest{Owner: owner, Name: name}
	if err := c.client.Call("SoundScout.PlaylistList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Playlists returns an owner's playlists.
func (c *Client) Playlists(owner string) (*PlaylistsResponse, error) {
	var resp PlaylistsResponse
	if err := c.client.Call("SoundScout.Playlists", PlaylistsRequest{Owner: owner}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StoreStats returns content store occupancy.
func (c *Client) StoreStats() (*StoreStatsResponse, error) {
	var resp StoreStatsResponse
	if err := c.client.Call("SoundScout.StoreStats", StoreStatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("SoundScout.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
