package testutil

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	echoapi "github.com/trezcool/masomo-admin/apps/api/echo"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/discipline"
	"github.com/trezcool/masomo-admin/core/user"
	"github.com/trezcool/masomo-admin/core/violation"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	inmemdb "github.com/trezcool/masomo-admin/storage/database/inmem"
	"github.com/trezcool/masomo-admin/storage/schoolapi"
)

// seeded credentials
const (
	AdminUsername     = "admin"
	AdminPassword     = "Adm1n!Masomo"
	CounselorUsername = "gmbuyi"
	CounselorPassword = "C0unsel!ng"
)

// NewConfig returns a configuration for tests that does not read the environment.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:          "Masomo",
		Env:              "TEST",
		Build:            "test",
		Debug:            true,
		TestMode:         true,
		DefaultFromEmail: mail.Address{Name: "Masomo", Address: "noreply@masomo.test"},
		FrontendBaseURL:  "http://localhost:3000",
		Workflow:         core.WorkflowConfig{NotesDebounce: core.DefaultNotesDebounce},
		Server: core.ServerConfig{
			ShutdownTimeout:    time.Second,
			JWTSecret:          "test-secret",
			JWTExpirationDelta: time.Hour,
		},
	}
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// Env is a running API backed by a freshly seeded in-memory database.
type Env struct {
	Conf   *core.Config
	Logger core.Logger
	DB     *inmemdb.DB
	Server *httptest.Server
	Client *schoolapi.Client
}

// StartServer starts the API on an httptest server; it is closed with the test.
func StartServer(t *testing.T) *Env {
	t.Helper()

	conf := NewConfig()
	logger := NewLogger(conf)
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	validate, _ := violation.NewValidator()

	api := echoapi.NewServer(&echoapi.Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		UserSvc:        user.NewService(inmemdb.NewUserRepository(db)),
		DisciplineSvc:  discipline.NewService(inmemdb.NewSchoolStore(db), validate),
	})
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	return &Env{
		Conf:   conf,
		Logger: logger,
		DB:     db,
		Server: ts,
		Client: schoolapi.NewClientWithHTTP(ts.URL, ts.Client()),
	}
}

// Login authenticates the env's client as the given seeded user.
func (env *Env) Login(t *testing.T, uname, pwd string) schoolapi.LoginResponse {
	t.Helper()
	res, err := env.Client.Login(context.Background(), uname, pwd)
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", uname, err)
	}
	return res
}
