// Package all registers every built-in audit storage backend. Import it for
// side effects:
//
//	import _ "mediadash/internal/storage/all"
//
// after which storage.New accepts the kinds "sqlite" and "postgres" in
// addition to the built-in "none".
package all

import (
	_ "mediadash/internal/storage/postgres"
	_ "mediadash/internal/storage/sqlite"
)
