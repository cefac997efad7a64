package main

import (
	"log"
	"os"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/result"
	emailsvc "github.com/trezcool/matokeo/services/email"
	"github.com/trezcool/matokeo/storage/database"
	sqlxrepos "github.com/trezcool/matokeo/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:      db,
		conf:    conf,
		usrRepo: sqlxrepos.NewUserRepository(db),
		resSvc: result.NewService(
			sqlxrepos.NewResultRepository(db),
			sqlxrepos.NewMarkRepository(db),
			sqlxrepos.NewStudentRepository(db),
			emailsvc.NewConsoleService(conf),
			conf,
			result.PolicyCompetition,
		),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
