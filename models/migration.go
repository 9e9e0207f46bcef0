package models

import (
	"github.com/validtech/valid_backend/config"
)

// AllModels lists every table in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Account{}, &Deployment{}, &Connector{}, &ProofRecord{},
		&EventIntake{},
		&Profile{}, &AccessRequest{},
		&Sponsor{},
		&History{},
		&NotificationRecord{},
	}
}

func MigrateTable() error {
	return config.GetDB().AutoMigrate(AllModels()...)
}
