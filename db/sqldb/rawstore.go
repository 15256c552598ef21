package sqldb

import (
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"
)

// RawSQLStore holds raw statements keyed by `<group>.<name>`, already
// converted to one dialect
type RawSQLStore struct {
	dbType string
	stmts  map[string]string
}

func NewRawStore(dbType string) *RawSQLStore {
	return &RawSQLStore{dbType: dbType, stmts: make(map[string]string)}
}

func (s *RawSQLStore) Set(key string, rawStmt string) {
	s.stmts[key] = rawStmt
}

func (s *RawSQLStore) Get(key string) (string, bool) {
	stmt, exists := s.stmts[key]
	return stmt, exists
}

// Stmt looks up a grouped statement
func (s *RawSQLStore) Stmt(group, name string) (string, error) {
	key := StoreGroupedStmtKey{Group: group, StmtName: name}.String()
	stmt, ok := s.stmts[key]
	if !ok {
		return "", fmt.Errorf("sql stmt %q not found for %s", key, s.dbType)
	}
	return stmt, nil
}

func (s *RawSQLStore) Len() int {
	return len(s.stmts)
}

type StoreGroupedStmtKey struct {
	Group    string
	StmtName string
}

func (k StoreGroupedStmtKey) String() string {
	return k.Group + "." + k.StmtName
}

// GroupFS is a group of statements under the `sql` dir of FS
type GroupFS struct {
	Group string
	FS    fs.FS
}

// Load reads every group into the store.
// `<name>.<dbtype>` files are dialect specific and used as-is.
// `<name>.sql` files are standard SQL with `?` placeholders, converted for the dialect
func (s *RawSQLStore) Load(groups ...GroupFS) error {
	prefix := PlaceholderPrefixForDBType[s.dbType]
	stmtCnt := 0
	for _, g := range groups {
		files, err := fs.ReadDir(g.FS, "sql")
		if err != nil {
			return fmt.Errorf("failed to read `sql` dir of group %s: %w", g.Group, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			filename := f.Name()
			ext := path.Ext(filename)
			name := strings.TrimSuffix(filename, ext)
			ext = strings.TrimPrefix(ext, ".")
			if ext != s.dbType && ext != "sql" {
				continue
			}
			data, err := fs.ReadFile(g.FS, path.Join("sql", filename))
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", filename, err)
			}
			key := StoreGroupedStmtKey{Group: g.Group, StmtName: name}.String()
			if ext == s.dbType {
				s.Set(key, string(data)) // dialect file wins over standard SQL
				stmtCnt++
				continue
			}
			if _, exists := s.Get(key); !exists {
				s.Set(key, ReplaceStaticPlaceholders(string(data), prefix))
				stmtCnt++
			}
		}
	}
	log.Printf("[INFO][%s] %d sql raw stmts loaded for %d groups", s.dbType, stmtCnt, len(groups))
	return nil
}
