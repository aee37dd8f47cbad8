package mythdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// Repository reads and writes the rows of one database field set as typed
// records.
type Repository[T record.Typed] struct {
	db    *DB
	key   string
	table string
	pk    []string
	auto  string
}

// NewRepository returns a repository for the database field set key.
func NewRepository[T record.Typed](db *DB, key string) (*Repository[T], error) {
	set, ok := db.reg.Catalog().FieldSet(key)
	if !ok {
		return nil, fmt.Errorf("repository %q: %w", key, record.ErrUnknownFieldSet)
	}
	if set.Domain != catalog.DomainSchema || set.Table == "" {
		return nil, fmt.Errorf("repository %q: %w", key, ErrNotTable)
	}
	pk := models.PrimaryKey(key)
	if len(pk) == 0 {
		return nil, fmt.Errorf("repository %q: no primary key", key)
	}
	auto, _ := models.AutoIncrement(key)
	return &Repository[T]{db: db, key: key, table: set.Table, pk: pk, auto: auto}, nil
}

// RecordingRules returns the repository of the record table.
func RecordingRules(db *DB) (*Repository[*models.RecordingRule], error) {
	return NewRepository[*models.RecordingRule](db, models.KeyRecordingRule)
}

// Jobs returns the repository of the jobqueue table.
func Jobs(db *DB) (*Repository[*models.Job], error) {
	return NewRepository[*models.Job](db, models.KeyJob)
}

// Channels returns the repository of the channel table.
func Channels(db *DB) (*Repository[*models.Channel], error) {
	return NewRepository[*models.Channel](db, models.KeyChannel)
}

// Settings returns the repository of the settings table.
func Settings(db *DB) (*Repository[*models.Setting], error) {
	return NewRepository[*models.Setting](db, models.KeySetting)
}

// Recorded returns the repository of the recorded table.
func Recorded(db *DB) (*Repository[*models.RecordedProgram], error) {
	return NewRepository[*models.RecordedProgram](db, models.KeyRecordedProgram)
}

func (r *Repository[T]) fields(ctx context.Context) (versioning.Version, []catalog.Field, error) {
	schema, err := r.db.SchemaVersion(ctx)
	if err != nil {
		return 0, nil, err
	}
	return schema, r.db.reg.Catalog().ValidFields(r.key, schema), nil
}

func (r *Repository[T]) column(schema versioning.Version, name string) (string, error) {
	f, ok := r.db.reg.Catalog().FieldByName(r.key, schema, name)
	if !ok {
		return "", fmt.Errorf("%s.%s not present at schema %d", r.key, name, schema)
	}
	return quote(f.ColumnName()), nil
}

func columnList(fields []catalog.Field) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quote(f.ColumnName())
	}
	return strings.Join(cols, ", ")
}

// New returns an empty record at the database's schema version.
func (r *Repository[T]) New(ctx context.Context) (T, error) {
	schema, err := r.db.SchemaVersion(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return record.As[T](r.db.reg.New(r.key, schema, schema))
}

// List returns the rows matching where, which may be empty. where refers to
// column names and uses ? placeholders.
func (r *Repository[T]) List(ctx context.Context, where string, args ...any) ([]T, error) {
	schema, fields, err := r.fields(ctx)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s", columnList(fields), quote(r.table))
	if where != "" {
		q += " WHERE " + where
	}

	rows, err := r.db.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.table, err)
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := record.As[T](r.db.reg.FromRow(r.key, schema, row))
		if err != nil {
			return nil, fmt.Errorf("decoding %s row: %w", r.table, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns the row whose primary key equals keys, in primary key order.
// A nil key matches NULL.
func (r *Repository[T]) Get(ctx context.Context, keys ...any) (T, error) {
	var zero T
	if len(keys) != len(r.pk) {
		return zero, fmt.Errorf("%s: want %d key values, got %d", r.table, len(r.pk), len(keys))
	}
	schema, err := r.db.SchemaVersion(ctx)
	if err != nil {
		return zero, err
	}

	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, name := range r.pk {
		col, err := r.column(schema, name)
		if err != nil {
			return zero, err
		}
		if keys[i] == nil {
			conds = append(conds, col+" IS NULL")
			continue
		}
		conds = append(conds, col+" = ?")
		args = append(args, keys[i])
	}

	list, err := r.List(ctx, strings.Join(conds, " AND "), args...)
	if err != nil {
		return zero, err
	}
	if len(list) == 0 {
		return zero, ErrNotFound
	}
	return list[0], nil
}

func (r *Repository[T]) check(ctx context.Context, rec T) (versioning.Version, error) {
	base := rec.Base()
	if base.Key() != r.key {
		return 0, fmt.Errorf("%w: %s into %s", ErrWrongSet, base.Key(), r.key)
	}
	schema, err := r.db.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}
	if base.SchemaVersion() != schema {
		return 0, fmt.Errorf("%w: record %d, database %d", ErrSchemaMismatch, base.SchemaVersion(), schema)
	}
	return schema, nil
}

func (r *Repository[T]) isKey(name string) bool {
	for _, k := range r.pk {
		if k == name {
			return true
		}
	}
	return false
}

// keyWhere builds the primary key condition from the record's tokens. Every
// key column must exist at the record's schema version.
func (r *Repository[T]) keyWhere(rec *record.Record) (string, []any, error) {
	conds := make([]string, 0, len(r.pk))
	args := make([]any, 0, len(r.pk))
	for _, f := range rec.Fields() {
		if !r.isKey(f.Name) {
			continue
		}
		tok, _ := rec.Raw(f.Name)
		if tok == nil {
			conds = append(conds, quote(f.ColumnName())+" IS NULL")
			continue
		}
		conds = append(conds, quote(f.ColumnName())+" = ?")
		args = append(args, *tok)
	}
	if len(conds) != len(r.pk) {
		return "", nil, fmt.Errorf("%s at schema %d: %w: want %s",
			r.table, rec.SchemaVersion(), ErrNoKey, strings.Join(r.pk, ", "))
	}
	return strings.Join(conds, " AND "), args, nil
}

func tokenArg(tok *string) any {
	if tok == nil {
		return nil
	}
	return *tok
}

// Save writes every non-key column of rec to its row.
func (r *Repository[T]) Save(ctx context.Context, rec T) error {
	if _, err := r.check(ctx, rec); err != nil {
		return err
	}
	base := rec.Base()
	fields := base.Fields()
	tokens := base.NullableTokens()

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+len(r.pk))
	for i, f := range fields {
		if r.isKey(f.Name) {
			continue
		}
		sets = append(sets, quote(f.ColumnName())+" = ?")
		args = append(args, tokenArg(tokens[i]))
	}
	where, keyArgs, err := r.keyWhere(base)
	if err != nil {
		return err
	}
	args = append(args, keyArgs...)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s", quote(r.table), strings.Join(sets, ", "), where)
	if _, err := r.db.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("saving %s: %w", r.table, err)
	}
	return nil
}

// Insert adds rec as a new row. Nil tokens take the field default, and an
// unset auto-increment key is assigned by the database and stored back.
func (r *Repository[T]) Insert(ctx context.Context, rec T) error {
	if _, err := r.check(ctx, rec); err != nil {
		return err
	}
	base := rec.Base()
	fields := base.Fields()
	tokens := base.NullableTokens()

	cols := make([]string, 0, len(fields))
	marks := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, f := range fields {
		tok := tokens[i]
		if tok == nil && f.Name == r.auto {
			continue
		}
		if tok == nil && f.HasDefault() {
			tok = f.Default
		}
		cols = append(cols, quote(f.ColumnName()))
		marks = append(marks, "?")
		args = append(args, tokenArg(tok))
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(r.table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	result, err := r.db.execResult(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", r.table, err)
	}

	if r.auto == "" {
		return nil
	}
	if tok, ok := base.Raw(r.auto); ok && tok == nil {
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading %s id: %w", r.table, err)
		}
		s := strconv.FormatInt(id, 10)
		base.SetRaw(r.auto, &s)
	}
	return nil
}

// Delete removes the row of rec.
func (r *Repository[T]) Delete(ctx context.Context, rec T) error {
	if _, err := r.check(ctx, rec); err != nil {
		return err
	}
	where, args, err := r.keyWhere(rec.Base())
	if err != nil {
		return err
	}
	n, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", quote(r.table), where), args...)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", r.table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Setting returns the data of a settings row. An empty hostname selects the
// global value.
func Setting(ctx context.Context, db *DB, name, hostname string) (string, error) {
	repo, err := Settings(db)
	if err != nil {
		return "", err
	}
	var host any
	if hostname != "" {
		host = hostname
	}
	s, err := repo.Get(ctx, name, host)
	if errors.Is(err, ErrNotFound) && hostname != "" {
		return Setting(ctx, db, name, "")
	}
	if err != nil {
		return "", fmt.Errorf("setting %s: %w", name, err)
	}
	return s.Data(), nil
}
