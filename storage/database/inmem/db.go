package inmemdb

import (
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/masomo-admin/core/discipline"
	"github.com/trezcool/masomo-admin/core/user"
	"github.com/trezcool/masomo-admin/core/violation"
)

//go:embed seed.yaml
var defaultSeed []byte

type (
	DB struct {
		user      *userTable
		student   *studentTable
		reporter  *reporterTable
		violation *violationTable
		catalog   discipline.Catalog
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	studentTable struct {
		table map[string]*violation.Student
		order []string
		mutex sync.RWMutex
	}

	reporterTable struct {
		table map[string]*violation.Reporter
		order []string
		mutex sync.RWMutex
	}

	violationTable struct {
		table map[string]*violation.Violation
		mutex sync.RWMutex
	}

	seedUser struct {
		user.User `yaml:",inline"`
		Password  string `yaml:"password"`
	}

	seedData struct {
		Users     []seedUser           `yaml:"users"`
		Students  []violation.Student  `yaml:"students"`
		Reporters []violation.Reporter `yaml:"reporters"`
		Catalog   discipline.Catalog   `yaml:"catalog"`
	}
)

// Open returns a database loaded with the embedded seed data.
func Open() (*DB, error) {
	return OpenWithSeed(defaultSeed)
}

// OpenWithSeed returns a database loaded with the given YAML seed.
func OpenWithSeed(seed []byte) (*DB, error) {
	var data seedData
	if err := yaml.Unmarshal(seed, &data); err != nil {
		return nil, errors.Wrap(err, "decoding seed")
	}

	db := &DB{
		user:      &userTable{table: make(map[string]*user.User)},
		student:   &studentTable{table: make(map[string]*violation.Student)},
		reporter:  &reporterTable{table: make(map[string]*violation.Reporter)},
		violation: &violationTable{table: make(map[string]*violation.Violation)},
		catalog:   data.Catalog,
	}

	for _, su := range data.Users {
		usr := su.User
		usr.Username = lower(usr.Username)
		usr.Email = lower(usr.Email)
		if err := usr.SetPassword(su.Password); err != nil {
			return nil, errors.Wrapf(err, "hashing password of %s", usr.Username)
		}
		db.user.table[usr.ID] = &usr
	}
	for i := range data.Students {
		st := data.Students[i]
		db.student.table[st.ID] = &st
		db.student.order = append(db.student.order, st.ID)
	}
	for i := range data.Reporters {
		rep := data.Reporters[i]
		db.reporter.table[rep.ID] = &rep
		db.reporter.order = append(db.reporter.order, rep.ID)
	}
	return db, nil
}
