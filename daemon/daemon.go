// The report as an HTTP service.
//
//   GET /job/{id}
//
// returns the report for the job as JSON.  An unknown job is 404, a malformed job ID 422.  The
// OpenAPI description is at /openapi.json.
//
// With a password file every request must carry basic-auth credentials from that file, and the
// authenticated user is the identity that decides whether live data for a running job is read.
// Without one every request is anonymous and never sees live data.
//
// SIGHUP rereads the password file, SIGTERM and SIGINT stop the daemon.

package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/rug-cit-hpc/slurm-jobinfo/auth"
	"github.com/rug-cit-hpc/slurm-jobinfo/common"
	"github.com/rug-cit-hpc/slurm-jobinfo/httpsrv"
	"github.com/rug-cit-hpc/slurm-jobinfo/process"
	"github.com/rug-cit-hpc/slurm-jobinfo/report"
	"github.com/rug-cit-hpc/slurm-jobinfo/slurm"
)

const (
	apiTitle  = "jobinfo"
	authRealm = "jobinfo"
)

type Config struct {
	Source  slurm.Source
	Options report.Options

	// nil: no authentication
	Authenticator *auth.Authenticator

	// Privileged users; nil means none
	IsOperator func(user string) bool

	Version string
	Verbose bool
}

type Server struct {
	cfg Config
}

func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

type JobInput struct {
	ID string `path:"id" pattern:"^[0-9_.]+$" doc:"Slurm job ID, eg 1234, 1234_5 or 1234.0"`
}

type JobOutput struct {
	Body *report.Document
}

type userKey struct{}

func (s *Server) Handler() http.Handler {
	router := chi.NewMux()
	router.Use(s.authenticate)
	api := humachi.New(router, huma.DefaultConfig(apiTitle, s.cfg.Version))
	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/job/{id}",
		Summary:     "Resource usage report for a job",
	}, s.getJob)
	return router
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Verbose {
			common.Log.Infof("Request from %s: %v", r.RemoteAddr, r.URL)
		}
		if s.cfg.Authenticator == nil {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || !s.cfg.Authenticator.Authenticate(user, pass) {
			w.Header().Add("WWW-Authenticate", "Basic realm=\""+authRealm+"\", charset=\"utf-8\"")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			if s.cfg.Verbose {
				common.Log.Warning("Authorization failed")
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func (s *Server) identity(ctx context.Context) report.Identity {
	user, ok := ctx.Value(userKey{}).(string)
	if !ok {
		return report.Identity{}
	}
	return report.Identity{
		User:       user,
		Privileged: s.cfg.IsOperator != nil && s.cfg.IsOperator(user),
	}
}

func (s *Server) getJob(ctx context.Context, input *JobInput) (*JobOutput, error) {
	r, err := report.Build(ctx, s.cfg.Source, s.identity(ctx), s.cfg.Options, input.ID)
	switch {
	case errors.Is(err, report.ErrNotFound):
		return nil, huma.Error404NotFound(err.Error())
	case errors.Is(err, report.ErrInvalidJobID):
		return nil, huma.Error422UnprocessableEntity(err.Error())
	case err != nil:
		common.Log.Error(err.Error())
		return nil, huma.Error500InternalServerError("Accounting data not available")
	}
	return &JobOutput{Body: r.Document()}, nil
}

// Serve on the port until stopped by a signal.  Returns an error if the server failed.
func (s *Server) Run(port int) error {
	var failed atomic.Bool
	srv := httpsrv.New(s.cfg.Verbose, port, s.Handler(), func(err error) {
		failed.Store(true)
	})
	sigs := process.NotifySignals(syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	defer sigs.Stop()
	go srv.Start()

	for sig := sigs.Wait(); sig == syscall.SIGHUP; sig = sigs.Wait() {
		if s.cfg.Authenticator != nil {
			if err := s.cfg.Authenticator.Reread(); err != nil {
				common.Log.Warningf("Password file not reread: %v", err)
			} else {
				common.Log.Info("Password file reread")
			}
		}
	}
	srv.Stop()

	if failed.Load() {
		return errors.New("Server failed")
	}
	return nil
}
