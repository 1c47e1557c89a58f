/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

// Package sqlite implements the persistence store on an embedded
// database file. One table, one row per record, upsert on key.
package sqlite

import (
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"
	_ "modernc.org/sqlite"

	"github.com/ufcg-lsd/asperathos-manager/pkg/persistence"
)

const (
	tableRecords = "records"

	createTable = `CREATE TABLE IF NOT EXISTS records (
		record_key TEXT PRIMARY KEY,
		record_blob BLOB NOT NULL
	)`
)

type store struct {
	db *sqlx.DB
}

// NewStore opens (and if needed initializes) the database file at path.
func NewStore(path string) (persistence.Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The embedded driver serializes writes itself; a single connection
	// avoids SQLITE_BUSY under concurrent registry updates.
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(createTable); err != nil {
		_ = db.Close()
		return nil, err
	}
	klog.Infof("opened sqlite store at %s", path)
	return &store{db: db}, nil
}

func (s *store) Put(key string, value []byte) error {
	query, args, err := sq.Insert(tableRecords).
		Columns("record_key", "record_blob").
		Values(key, value).
		Suffix("ON CONFLICT(record_key) DO UPDATE SET record_blob = excluded.record_blob").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(query, args...)
	return err
}

func (s *store) Get(key string) ([]byte, error) {
	query, args, err := sq.Select("record_blob").
		From(tableRecords).
		Where(sq.Eq{"record_key": key}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var blob []byte
	if err = s.db.Get(&blob, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return blob, nil
}

func (s *store) Delete(key string) error {
	query, args, err := sq.Delete(tableRecords).
		Where(sq.Eq{"record_key": key}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(query, args...)
	return err
}

func (s *store) DeleteAll(prefix string) error {
	query, args, err := sq.Delete(tableRecords).
		Where(sq.Like{"record_key": prefix + "%"}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(query, args...)
	return err
}

func (s *store) GetAll(prefix string) (map[string][]byte, error) {
	query, args, err := sq.Select("record_key", "record_blob").
		From(tableRecords).
		Where(sq.Like{"record_key": prefix + "%"}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Queryx(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var blob []byte
		if err = rows.Scan(&key, &blob); err != nil {
			return nil, err
		}
		result[key] = blob
	}
	return result, rows.Err()
}

func (s *store) Close() error {
	return s.db.Close()
}
