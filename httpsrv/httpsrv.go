// A simple HTTP server (built on net/http) that can be started on a goroutine and stopped from
// another.

package httpsrv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rug-cit-hpc/slurm-jobinfo/status"
)

const (
	serverShutdownTimeoutSec = 10
)

type Server struct {
	verbose bool
	port    int
	failed  func(error)
	stop    chan bool
	server  *http.Server
}

// Create a server for `handler` that will be listening on `port`.  It will call `failed` if the
// server returns a failure code.  The server is not started by this.

func New(verbose bool, port int, handler http.Handler, failed func(error)) *Server {
	return &Server{
		verbose: verbose,
		port:    port,
		failed:  failed,
		stop:    make(chan bool, 1),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 30 * time.Second,
		},
	}
}

// Start the server.  This blocks the current goroutine until the server exits, so typical usage
// would be `go s.Start()`.  To force the server to shut down, call s.Stop().

func (s *Server) Start() {
	if s.verbose {
		status.Default().Infof("Listening on port %d", s.port)
	}
	err := s.server.ListenAndServe()
	if err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			status.Default().Error(err.Error())
			status.Default().Error("SERVER NOT RUNNING")
			if s.failed != nil {
				s.failed(err)
			}
		} else if s.verbose {
			status.Default().Info(err.Error())
		}
	}
	s.stop <- true
}

// Cause the server to shut down and wait for Start to return.

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeoutSec*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		status.Default().Warning(err.Error())
	}
	<-s.stop
}
