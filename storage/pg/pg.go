// Package pg persists the fulfillment collection in PostgreSQL: one row in
// a key/state table, rewritten wholesale on every mutation.
package pg

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"io/fs"
	"regexp"
	"text/template"

	"github.com/eluv-io/errors-go"
	elog "github.com/eluv-io/log-go"
	"github.com/jackc/pgx"

	"handoffd/fulfillment"
	"handoffd/server/db"
)

//go:embed sql/*.tmpl
var statementsFS embed.FS

var log = elog.Get("/hd/pg")

type Store struct {
	pool *db.ConnectionManager
	key  string
}

// NewStore wraps a connection manager. When migrate is set the state table
// is created if missing.
func NewStore(cm *db.ConnectionManager, key string, migrate bool) (*Store, error) {
	s := &Store{pool: cm, key: key}
	if migrate {
		if err := s.ensureTable(); err != nil {
			return nil, err
		}
	}
	log.Info("init pg store", "key", key)
	return s, nil
}

func (s *Store) conn() *pgx.ConnPool {
	return s.pool.GetConn()
}

func (s *Store) context() map[string]interface{} {
	return map[string]interface{}{
		"table": "handoff_state",
	}
}

func (s *Store) ensureTable() (err error) {
	var stmt string
	if stmt, err = mergeTemplate("sql/create-table.tmpl", s.context()); err != nil {
		return
	}
	if _, err = s.conn().Exec(stmt); err != nil {
		return errors.E("create state table", errors.K.IO, err)
	}
	return
}

func (s *Store) Load(ctx context.Context) (records []*fulfillment.Fulfillment, err error) {
	var stmt string
	if stmt, err = mergeTemplate("sql/get-state.tmpl", s.context()); err != nil {
		return
	}

	var rows *pgx.Rows
	if rows, err = s.conn().QueryEx(ctx, stmt, nil, s.key); err != nil {
		return nil, errors.E("load state", errors.K.IO, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	var state sql.NullString
	if err = rows.Scan(&state); err != nil {
		return nil, errors.E("load state", errors.K.IO, err)
	}
	if !state.Valid || state.String == "" {
		return nil, nil
	}
	if err = json.Unmarshal([]byte(state.String), &records); err != nil {
		return nil, errors.E("load state", errors.K.Invalid, err)
	}
	return records, nil
}

func (s *Store) Save(ctx context.Context, records []*fulfillment.Fulfillment) (err error) {
	var data []byte
	if data, err = json.Marshal(records); err != nil {
		return errors.E("save state", errors.K.Invalid, err)
	}

	var stmt string
	if stmt, err = mergeTemplate("sql/save-state.tmpl", s.context()); err != nil {
		return
	}
	if _, err = s.conn().ExecEx(ctx, stmt, nil, s.key, string(data)); err != nil {
		return errors.E("save state", errors.K.IO, err)
	}
	return
}

var whitespace = regexp.MustCompile(`\s+`)

func mergeTemplate(path string, ctx map[string]interface{}) (stmt string, err error) {
	var b []byte
	if b, err = fs.ReadFile(statementsFS, path); err != nil {
		return
	}

	var t *template.Template
	if t, err = template.New(path).Parse(string(b)); err != nil {
		return
	}
	buf := new(bytes.Buffer)
	if err = t.Execute(buf, ctx); err != nil {
		return
	}

	stmt = whitespace.ReplaceAllString(buf.String(), " ")
	return
}
