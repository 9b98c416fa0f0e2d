package main

import (
	"github.com/passify/backend/storage/database"
)

var migrateRunFunc = database.RunMigration // mockable

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	return migrateRunFunc(cli.db, args[0], args[1:]...)
}
