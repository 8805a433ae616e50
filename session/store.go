package session

import (
	"github.com/alexedwards/scs/gormstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"gorm.io/gorm"
)

func NewMemoryStore() scs.Store {
	return memstore.New()
}

// NewDatabaseStore keeps sessions in the application database. Expired rows
// are ignored on read; the background sweep is left off.
func NewDatabaseStore(db *gorm.DB) (scs.Store, error) {
	return gormstore.NewWithCleanupInterval(db, 0)
}
