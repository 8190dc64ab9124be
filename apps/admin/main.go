package main

import (
	"log"
	"os"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/violation"
	emailsvc "github.com/trezcool/masomo-admin/services/email"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	"github.com/trezcool/masomo-admin/storage/schoolapi"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	var mailer core.EmailService
	if conf.SendgridAPIKey != "" {
		mailer = emailsvc.NewSendgridService(conf, logger)
	} else {
		mailer = emailsvc.NewConsoleService(conf, logger)
	}

	client := schoolapi.NewClient(conf.API)
	repo := violation.NewRepository(client, logger, violation.WithNotesDebounce(conf.Workflow.NotesDebounce))
	defer repo.Close()

	// start CLI
	cli := commandLine{
		conf:   conf,
		logger: logger,
		api:    client,
		repo:   repo,
		mailer: mailer,
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		repo.Close()
		os.Exit(1)
	}
}
