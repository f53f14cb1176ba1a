package query

import (
	"bytes"
	"cmp"
	"strings"
	"time"

	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

// Field is a sortable Transaction attribute. Column is the storage column
// name including any collation needed to match Compare.
type Field struct {
	Name    string
	Column  string
	Compare func(a, b *models.Transaction) int
}

var (
	FieldFromAccount = &Field{
		Name:   "FromAccount",
		Column: `from_account COLLATE "C"`,
		Compare: func(a, b *models.Transaction) int {
			return strings.Compare(a.FromAccount, b.FromAccount)
		},
	}
	FieldToAccount = &Field{
		Name:   "ToAccount",
		Column: `to_account COLLATE "C"`,
		Compare: func(a, b *models.Transaction) int {
			return strings.Compare(a.ToAccount, b.ToAccount)
		},
	}
	FieldAmount = &Field{
		Name:   "Amount",
		Column: "amount",
		Compare: func(a, b *models.Transaction) int {
			return cmp.Compare(a.Amount, b.Amount)
		},
	}
	FieldCreated = &Field{
		Name:   "Created",
		Column: "created",
		Compare: func(a, b *models.Transaction) int {
			return a.Created.Compare(b.Created)
		},
	}
	FieldState = &Field{
		Name:   "State",
		Column: "state",
		Compare: func(a, b *models.Transaction) int {
			return cmp.Compare(a.State, b.State)
		},
	}
	FieldLastStateUpdate = &Field{
		Name:    "LastStateUpdate",
		Column:  "last_state_update",
		Compare: compareOptionalTime,
	}
	FieldVersion = &Field{
		Name:   "Version",
		Column: "version",
		Compare: func(a, b *models.Transaction) int {
			return cmp.Compare(a.Version, b.Version)
		},
	}
)

var sortableFields = map[string]*Field{}

func init() {
	for _, f := range []*Field{
		FieldFromAccount,
		FieldToAccount,
		FieldAmount,
		FieldCreated,
		FieldState,
		FieldLastStateUpdate,
		FieldVersion,
	} {
		sortableFields[strings.ToLower(f.Name)] = f
	}
}

// LookupField resolves a field name case-insensitively.
func LookupField(name string) (*Field, bool) {
	f, ok := sortableFields[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// compareOptionalTime orders a missing timestamp after every present one,
// which is how Postgres orders NULL.
func compareOptionalTime(a, b *models.Transaction) int {
	return compareTimePtr(a.LastStateUpdate, b.LastStateUpdate)
}

func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func compareID(a, b *models.Transaction) int {
	return bytes.Compare(a.ID[:], b.ID[:])
}
