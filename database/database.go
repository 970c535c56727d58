/*
 * This file is part of NexusTracker.
 *
 * NexusTracker is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * NexusTracker is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with NexusTracker.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package database implements the tracker's backing store on MySQL. Every
// mutation is a single conditional statement or a short transaction, so the
// hot path holds no application-level locks.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"

	"nexustracker/collector"
	"nexustracker/config"
)

type Database struct {
	conn *sql.DB

	userByPasskeyStmt *sql.Stmt
	userByIDStmt      *sql.Stmt
	torrentByHashStmt *sql.Stmt

	swarmSummaryStmt  *sql.Stmt
	swarmPeersStmt    *sql.Stmt
	swarmLeechersStmt *sql.Stmt

	rateLimitStmt       *sql.Stmt
	upsertRateLimitStmt *sql.Stmt

	transferStandingsStmt *sql.Stmt
	hitAndRunCountsStmt   *sql.Stmt

	setUserInvitesStmt *sql.Stmt

	markInactivePeersStmt *sql.Stmt
	flagHitAndRunsStmt    *sql.Stmt
	clearHitAndRunsStmt   *sql.Stmt
}

var (
	deadlockWaitTime   int
	maxDeadlockRetries int
)

var defaultDsn = map[string]string{
	"username": "nexustracker",
	"password": "",
	"proto":    "tcp",
	"addr":     "127.0.0.1:3306",
	"database": "nexustracker",
}

// Open connects using DB_DSN from the environment when set (used by tests),
// falling back to the "database" config section, and prepares every
// statement the hot path needs.
func Open() (*Database, error) {
	databaseConfig := config.Section("database")
	deadlockWaitTime, _ = databaseConfig.GetInt("deadlock_pause", 1)
	maxDeadlockRetries, _ = databaseConfig.GetInt("deadlock_retries", 5)

	// DSN Format: username:password@protocol(address)/dbname?param=value
	databaseDsn := os.Getenv("DB_DSN")
	if databaseDsn == "" {
		dbUsername, _ := databaseConfig.Get("username", defaultDsn["username"])
		dbPassword, _ := databaseConfig.Get("password", defaultDsn["password"])
		dbProto, _ := databaseConfig.Get("proto", defaultDsn["proto"])
		dbAddr, _ := databaseConfig.Get("addr", defaultDsn["addr"])
		dbDatabase, _ := databaseConfig.Get("database", defaultDsn["database"])
		databaseDsn = fmt.Sprintf("%s:%s@%s(%s)/%s",
			dbUsername,
			dbPassword,
			dbProto,
			dbAddr,
			dbDatabase,
		)
	}

	conn, err := sql.Open("mysql", databaseDsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &Database{conn: conn}
	if err = db.prepareStatements(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	slog.Info("database connection established")

	return db, nil
}

func (db *Database) prepareStatements() error {
	for _, p := range []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&db.userByPasskeyStmt,
			"SELECT id, passkey, role, uploaded, downloaded, invites, enabled FROM users WHERE passkey = ?"},
		{&db.userByIDStmt,
			"SELECT id, passkey, role, uploaded, downloaded, invites, enabled FROM users WHERE id = ?"},
		{&db.torrentByHashStmt,
			"SELECT id, info_hash, size, snatched FROM torrents WHERE info_hash = ?"},
		{&db.swarmSummaryStmt,
			"SELECT COALESCE(SUM(remaining = 0), 0), COALESCE(SUM(remaining > 0), 0) " +
				"FROM peer_progress WHERE torrent_id = ? AND active = 1 AND last_announce > ?"},
		{&db.swarmPeersStmt,
			"SELECT peer_id, ip, port FROM peer_progress " +
				"WHERE torrent_id = ? AND active = 1 AND last_announce > ? AND peer_id != ? AND user_id != ? " +
				"ORDER BY RAND() LIMIT ?"},
		{&db.swarmLeechersStmt,
			"SELECT peer_id, ip, port FROM peer_progress " +
				"WHERE torrent_id = ? AND active = 1 AND last_announce > ? AND peer_id != ? AND user_id != ? " +
				"AND remaining > 0 ORDER BY RAND() LIMIT ?"},
		{&db.rateLimitStmt,
			"SELECT user_id, torrent_id, last_announce, announce_count, ip " +
				"FROM announce_rate_limits WHERE user_id = ? AND torrent_id = ?"},
		// announce_count must be assigned before last_announce: MySQL
		// evaluates update assignments left to right and the rollover test
		// reads the previous last_announce.
		{&db.upsertRateLimitStmt,
			"INSERT INTO announce_rate_limits (user_id, torrent_id, last_announce, announce_count, ip) " +
				"VALUES (?, ?, ?, 1, ?) " +
				"ON DUPLICATE KEY UPDATE " +
				"announce_count = IF(last_announce <= ?, 1, announce_count + 1), " +
				"last_announce = VALUES(last_announce), ip = VALUES(ip)"},
		{&db.transferStandingsStmt,
			"SELECT c.torrent_id, t.size, a.uploaded, a.downloaded, c.completed_at, a.last_seeded_at " +
				"FROM torrent_completions AS c " +
				"JOIN transfer_aggregates AS a ON a.user_id = c.user_id AND a.torrent_id = c.torrent_id " +
				"JOIN torrents AS t ON t.id = c.torrent_id " +
				"WHERE c.user_id = ?"},
		{&db.hitAndRunCountsStmt,
			"SELECT COALESCE(SUM(cleared = 0), 0), COUNT(*) FROM hit_and_runs WHERE user_id = ?"},
		{&db.setUserInvitesStmt,
			"UPDATE users SET invites = ? WHERE id = ?"},
		{&db.markInactivePeersStmt,
			"UPDATE peer_progress SET active = 0 WHERE last_announce < ? AND active = 1"},
		{&db.flagHitAndRunsStmt,
			"INSERT IGNORE INTO hit_and_runs (user_id, torrent_id, flagged_at) " +
				"SELECT c.user_id, c.torrent_id, ? FROM torrent_completions AS c " +
				"JOIN transfer_aggregates AS a ON a.user_id = c.user_id AND a.torrent_id = c.torrent_id " +
				"JOIN torrents AS t ON t.id = c.torrent_id " +
				"WHERE a.downloaded >= t.size AND a.downloaded > 0 AND a.uploaded < a.downloaded " +
				"AND a.last_seeded_at <= ? AND c.completed_at <= ?"},
		{&db.clearHitAndRunsStmt,
			"UPDATE hit_and_runs AS h " +
				"JOIN transfer_aggregates AS a ON a.user_id = h.user_id AND a.torrent_id = h.torrent_id " +
				"SET h.cleared = 1 WHERE h.cleared = 0 AND a.uploaded >= a.downloaded"},
	} {
		stmt, err := db.conn.Prepare(p.query)
		if err != nil {
			return fmt.Errorf("prepare %q: %w", p.query, err)
		}

		*p.stmt = stmt
	}

	return nil
}

func (db *Database) Close() error {
	return db.conn.Close()
}

// perform runs exec, retrying MySQL deadlocks (1213) and lock wait timeouts
// (1205) with linear backoff. Any other error is surfaced to the caller.
func perform(exec func() error) error {
	var (
		err  error
		wait time.Duration
	)

	for tries := 1; tries <= maxDeadlockRetries; tries++ {
		err = exec()
		if err == nil {
			return nil
		}

		var merr *mysql.MySQLError
		if errors.As(err, &merr) {
			if merr.Number == 1213 || merr.Number == 1205 {
				wait = time.Duration(deadlockWaitTime*tries) * time.Second
				slog.Warn("deadlock found, retrying",
					"wait", wait.String(), "try", tries, "max", maxDeadlockRetries)

				if tries == 1 {
					collector.IncrementDeadlockCount()
				}

				collector.IncrementDeadlockTime(wait)
				time.Sleep(wait)

				continue
			}

			slog.Error("sql error", "number", merr.Number, "message", merr.Message)
			collector.IncrementSQLErrorCount()
		}

		return err
	}

	slog.Error("deadlocked too many times, giving up", "tries", maxDeadlockRetries)
	collector.IncrementDeadlockAborted()

	return err
}

// withTx runs fn in one transaction, retried as a unit on deadlock. fn must
// be idempotent since a deadlocked attempt is rolled back and rerun.
func (db *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return perform(func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		if err = fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}

		return tx.Commit()
	})
}
