// Package earnings reads accrued monetized-content earnings from the
// community platform's MySQL database. Read only; the platform owns
// the schema, this client just sums approved earnings rows.
package earnings

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"creatorhub/internal/config"
)

type MySql struct {
	db         *sql.DB
	prefix     string
	loc        *time.Location
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func NewSQLClient(conf *config.Config) (*MySql, error) {
	if !conf.Community.Enabled {
		return nil, fmt.Errorf("community earnings client is disabled in configuration")
	}
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		conf.Community.UserName, conf.Community.Password, conf.Community.HostName, conf.Community.Port, conf.Community.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	loc, err := time.LoadLocation(conf.Location)
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}

	return &MySql{
		db:         db,
		prefix:     conf.Community.Prefix,
		loc:        loc,
		statements: make(map[string]*sql.Stmt),
	}, nil
}

func (s *MySql) Close() {
	s.mu.Lock()
	for _, stmt := range s.statements {
		_ = stmt.Close()
	}
	s.statements = make(map[string]*sql.Stmt)
	s.mu.Unlock()
	_ = s.db.Close()
}

func (s *MySql) stmt(key, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stmt, ok := s.statements[key]; ok {
		return stmt, nil
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", key, err)
	}
	s.statements[key] = stmt
	return stmt, nil
}

// EarnedTotal sums the creator's approved earnings, in cents, accrued
// since the given time. Passing the zero time sums the whole history.
func (s *MySql) EarnedTotal(creatorId string, since time.Time) (int64, error) {
	query := fmt.Sprintf(
		"SELECT COALESCE(SUM(amount), 0) FROM %scontent_earnings WHERE creator_id = ? AND status = 'approved' AND approved_at >= ?",
		s.prefix)
	stmt, err := s.stmt("earned_total", query)
	if err != nil {
		return 0, err
	}

	var total int64
	if err = stmt.QueryRow(creatorId, since.In(s.loc)).Scan(&total); err != nil {
		return 0, fmt.Errorf("earned total: %w", err)
	}
	return total, nil
}
