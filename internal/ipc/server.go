// Package ipc exposes daemon control via JSON-RPC over a Unix domain socket
// and provides the matching client used by the CLI.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"soundscout/internal/api"
	"soundscout/internal/daemon"
	"soundscout/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("SoundScout", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.DatabasePath = status.DatabasePath
	resp.SocketPath = status.SocketPath
	resp.LockPath = status.LockPath
	resp.JobCounts = make(map[string]int, len(status.JobCounts))
	for state, count := range status.JobCounts {
		resp.JobCounts[string(state)] = count
	}
	resp.Scheduler = api.FromSchedulerStats(status.Scheduler)
	resp.Store = api.FromStoreStats(status.Store)
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	job, err := s.daemon.Submit(s.ctx, req.Owner, req.Source)
	if err != nil {
		return err
	}
	resp.Job = api.FromJob(job)
	s.logger.Info("job submitted via IPC",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldOwner, job.Owner))
	return nil
}

func (s *service) JobStatus(req JobStatusRequest, resp *JobStatusResponse) error {
	job, err := s.daemon.Job(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Job = api.FromJob(job)
	return nil
}

func (s *service) JobList(req JobListRequest, resp *JobListResponse) error {
	if req.Owner != "" {
		list, err := s.daemon.ListOwnerJobs(s.ctx, req.Owner)
		if err != nil {
			return err
		}
		resp.Jobs = api.FromJobs(list)
		return nil
	}
	list, err := s.daemon.ListJobs(s.ctx, req.States)
	if err != nil {
		return err
	}
	resp.Jobs = api.FromJobs(list)
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	if err := s.daemon.CancelJob(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Cancelled = true
	return nil
}

func (s *service) PlaylistAppend(req PlaylistAppendRequest, resp *PlaylistAppendResponse) error {
	entry, err := s.daemon.PlaylistAppend(s.ctx, req.Owner, req.Name, req.ContentHash)
	if err != nil {
		return err
	}
	resp.Entry = api.FromPlaylistEntry(entry)
	return nil
}

func (s *service) PlaylistRemove(req PlaylistRemoveRequest, resp *PlaylistRemoveResponse) error {
	if err := s.daemon.PlaylistRemove(s.ctx, req.Owner, req.Name, req.Position); err != nil {
		return err
	}
	resp.Removed = true
	return nil
}

func (s *service) PlaylistList(req PlaylistListRequest, resp *PlaylistListResponse) error {
	entries, err := s.daemon.PlaylistEntries(s.ctx, req.Owner, req.Name)
	if err != nil {
		return err
	}
	resp.Entries = api.FromPlaylistEntries(entries)
	return nil
}

func (s *service) Playlists(req PlaylistsRequest, resp *PlaylistsResponse) error {
	summaries, err := s.daemon.Playlists(s.ctx, req.Owner)
	if err != nil {
		return err
	}
	resp.Playlists = api.FromPlaylistSummaries(summaries)
	return nil
}

func (s *service) StoreStats(_ StoreStatsRequest, resp *StoreStatsResponse) error {
	stats, err := s.daemon.StoreStats(s.ctx)
	if err != nil {
		return err
	}
	resp.Stats = api.FromStoreStats(stats)
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	if err != nil {
		resp.Message = fmt.Sprintf("%s: %v", message, err)
	}
	return nil
}
