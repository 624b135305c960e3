package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"avalon-be/internal/service/game"
	"avalon-be/internal/store/migrations"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	DIALECT_SQLITE   = "sqlite"
	DIALECT_POSTGRES = "postgres"
)

// SQLStore 基于 sqlx 的关系型存储，SQLite 与 PostgreSQL 共用同一套 SQL
type SQLStore struct {
	db      *sqlx.DB
	dialect string
}

// OpenSQLite 打开 SQLite 数据库并执行迁移。写事务以 IMMEDIATE 方式开启，
// 连接数限制为 1，保证同一时刻只有一个对局事务在写。
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := "file:" + path +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return newSQLStore(ctx, sqlDB, DIALECT_SQLITE, goose.DialectSQLite3)
}

// OpenPostgres 打开 PostgreSQL 连接并执行迁移，对局行通过 SELECT ... FOR UPDATE 加锁
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}

	return newSQLStore(ctx, sqlDB, DIALECT_POSTGRES, goose.DialectPostgres)
}

func newSQLStore(ctx context.Context, sqlDB *sql.DB, dialect string, gooseDialect goose.Dialect) (*SQLStore, error) {
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gooseDialect, sqlDB, migrations.FS)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init migrations: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	driver := "sqlite"
	if dialect == DIALECT_POSTGRES {
		driver = "pgx"
	}

	return &SQLStore{
		db:      sqlx.NewDb(sqlDB, driver),
		dialect: dialect,
	}, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

type sessionRow struct {
	ID                 string `db:"id"`
	GroupRef           string `db:"group_ref"`
	Status             string `db:"status"`
	Phase              string `db:"phase"`
	MaxPlayers         int    `db:"max_players"`
	ActiveRoles        string `db:"active_roles"`
	CurrentLeaderIndex int    `db:"current_leader_index"`
	CurrentRoundNumber int    `db:"current_round_number"`
	Winner             string `db:"winner"`
	WinReason          string `db:"win_reason"`
	AssassinTarget     string `db:"assassin_target"`
	CreatedAt          int64  `db:"created_at"`
	UpdatedAt          int64  `db:"updated_at"`
}

type participantRow struct {
	ID          string `db:"id"`
	Identity    string `db:"identity"`
	DisplayName string `db:"display_name"`
	IsHost      int    `db:"is_host"`
	IsReady     int    `db:"is_ready"`
	Seat        int    `db:"seat"`
	Role        string `db:"role"`
	JoinedAt    int64  `db:"joined_at"`
}

type roundRow struct {
	ID              string        `db:"id"`
	RoundNumber     int           `db:"round_number"`
	RequiredPlayers int           `db:"required_players"`
	FailsRequired   int           `db:"fails_required"`
	IsSuccess       sql.NullInt64 `db:"is_success"`
}

type proposalRow struct {
	ID         string        `db:"id"`
	RoundID    string        `db:"round_id"`
	ProposerID string        `db:"proposer_id"`
	Team       string        `db:"team"`
	IsApproved sql.NullInt64 `db:"is_approved"`
	CreatedAt  int64         `db:"created_at"`
}

type voteRow struct {
	ProposalID string `db:"proposal_id"`
	PlayerID   string `db:"player_id"`
	Value      string `db:"value"`
}

type pendingRow struct {
	LeaderID   string `db:"leader_id"`
	Team       string `db:"team"`
	SourceText string `db:"source_text"`
	ExpiresAt  int64  `db:"expires_at"`
}

func (s *SQLStore) CreateSession(ctx context.Context, session *game.Session) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	roles, err := encodeList(session.ActiveRoles)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO sessions (
		  id, group_ref, status, phase, max_players, active_roles,
		  current_leader_index, current_round_number, winner, win_reason,
		  assassin_target, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		session.ID,
		session.GroupRef,
		string(session.Status),
		string(session.Phase),
		session.MaxPlayers,
		roles,
		session.CurrentLeaderIndex,
		session.CurrentRoundNumber,
		string(session.Winner),
		session.WinReason,
		session.AssassinTarget,
		toMillis(session.CreatedAt),
		toMillis(session.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrAlreadyExists
			return err
		}
		return fmt.Errorf("insert session: %w", err)
	}

	if err = s.saveChildren(ctx, tx, session); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}

	return nil
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (*game.Session, error) {
	return s.load(ctx, s.db, id, false)
}

func (s *SQLStore) GetActiveSession(ctx context.Context, groupRef string) (*game.Session, error) {
	var id string
	err := s.db.GetContext(ctx, &id, s.db.Rebind(
		`SELECT id FROM sessions WHERE group_ref = ? AND status IN ('WAITING', 'PLAYING')`,
	), groupRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}

	return s.load(ctx, s.db, id, false)
}

func (s *SQLStore) SessionIDForProposal(ctx context.Context, proposalID string) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, s.db.Rebind(`SELECT session_id FROM proposals WHERE id = ?`), proposalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find proposal session: %w", err)
	}

	return id, nil
}

func (s *SQLStore) UpdateSession(ctx context.Context, id string, fn func(*game.Session) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update session: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	session, err := s.load(ctx, tx, id, true)
	if err != nil {
		return err
	}

	if err = fn(session); err != nil {
		return err
	}

	if err = s.save(ctx, tx, session); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update session: %w", err)
	}

	return nil
}

func (s *SQLStore) PurgeExpiredPending(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM pending_proposals WHERE expires_at <= ?`), toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("purge pending proposals: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge pending proposals: %w", err)
	}

	return int(n), nil
}

// PurgeFinished 依赖外键级联删除对局下的所有子表记录
func (s *SQLStore) PurgeFinished(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM sessions
		WHERE status IN (?, ?) AND updated_at <= ?`),
		string(game.STATUS_FINISHED), string(game.STATUS_ABORTED), toMillis(before),
	)
	if err != nil {
		return 0, fmt.Errorf("purge finished sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge finished sessions: %w", err)
	}

	return int(n), nil
}

func (s *SQLStore) load(ctx context.Context, q sqlx.ExtContext, id string, forUpdate bool) (*game.Session, error) {
	query := `
		SELECT id, group_ref, status, phase, max_players, active_roles,
		       current_leader_index, current_round_number, winner, win_reason,
		       assassin_target, created_at, updated_at
		  FROM sessions WHERE id = ?`
	if forUpdate && s.dialect == DIALECT_POSTGRES {
		query += " FOR UPDATE"
	}

	var row sessionRow
	if err := sqlx.GetContext(ctx, q, &row, q.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var roles []game.RoleID
	if err := json.Unmarshal([]byte(row.ActiveRoles), &roles); err != nil {
		return nil, fmt.Errorf("decode active roles: %w", err)
	}

	session := &game.Session{
		ID:                 row.ID,
		GroupRef:           row.GroupRef,
		Status:             game.Status(row.Status),
		Phase:              game.Phase(row.Phase),
		MaxPlayers:         row.MaxPlayers,
		ActiveRoles:        roles,
		CurrentLeaderIndex: row.CurrentLeaderIndex,
		CurrentRoundNumber: row.CurrentRoundNumber,
		Winner:             game.Team(row.Winner),
		WinReason:          row.WinReason,
		AssassinTarget:     row.AssassinTarget,
		CreatedAt:          fromMillis(row.CreatedAt),
		UpdatedAt:          fromMillis(row.UpdatedAt),
	}

	var participants []participantRow
	if err := sqlx.SelectContext(ctx, q, &participants, q.Rebind(`
		SELECT id, identity, display_name, is_host, is_ready, seat, role, joined_at
		  FROM participants WHERE session_id = ? ORDER BY seat`), id); err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	for _, p := range participants {
		session.Participants = append(session.Participants, &game.Participant{
			ID:       p.ID,
			Identity: p.Identity,
			Name:     p.DisplayName,
			IsHost:   p.IsHost != 0,
			IsReady:  p.IsReady != 0,
			Index:    p.Seat,
			Role:     game.RoleID(p.Role),
			JoinedAt: fromMillis(p.JoinedAt),
		})
	}

	var rounds []roundRow
	if err := sqlx.SelectContext(ctx, q, &rounds, q.Rebind(`
		SELECT id, round_number, required_players, fails_required, is_success
		  FROM rounds WHERE session_id = ? ORDER BY round_number`), id); err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}
	roundByID := make(map[string]*game.Round, len(rounds))
	for _, r := range rounds {
		round := &game.Round{
			ID:              r.ID,
			Number:          r.RoundNumber,
			RequiredPlayers: r.RequiredPlayers,
			FailsRequired:   r.FailsRequired,
			IsSuccess:       fromNullable(r.IsSuccess),
			Proposals:       make([]*game.Proposal, 0),
		}
		roundByID[r.ID] = round
		session.Rounds = append(session.Rounds, round)
	}

	var proposals []proposalRow
	if err := sqlx.SelectContext(ctx, q, &proposals, q.Rebind(`
		SELECT id, round_id, proposer_id, team, is_approved, created_at
		  FROM proposals WHERE session_id = ? ORDER BY round_id, seq`), id); err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	proposalByID := make(map[string]*game.Proposal, len(proposals))
	for _, p := range proposals {
		round, ok := roundByID[p.RoundID]
		if !ok {
			return nil, fmt.Errorf("proposal %s references unknown round %s", p.ID, p.RoundID)
		}

		var team []string
		if err := json.Unmarshal([]byte(p.Team), &team); err != nil {
			return nil, fmt.Errorf("decode proposal team: %w", err)
		}

		proposal := &game.Proposal{
			ID:         p.ID,
			RoundID:    p.RoundID,
			ProposerID: p.ProposerID,
			Team:       team,
			IsApproved: fromNullable(p.IsApproved),
			Votes:      make([]game.Vote, 0),
			Actions:    make([]game.MissionAction, 0),
			CreatedAt:  fromMillis(p.CreatedAt),
		}
		proposalByID[p.ID] = proposal
		round.Proposals = append(round.Proposals, proposal)
	}

	var votes []voteRow
	if err := sqlx.SelectContext(ctx, q, &votes, q.Rebind(`
		SELECT v.proposal_id, v.player_id, v.decision AS value
		  FROM votes v JOIN proposals p ON p.id = v.proposal_id
		 WHERE p.session_id = ? ORDER BY v.proposal_id, v.player_id`), id); err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	for _, v := range votes {
		if p, ok := proposalByID[v.ProposalID]; ok {
			p.Votes = append(p.Votes, game.Vote{PlayerID: v.PlayerID, Decision: game.Decision(v.Value)})
		}
	}

	var actions []voteRow
	if err := sqlx.SelectContext(ctx, q, &actions, q.Rebind(`
		SELECT a.proposal_id, a.player_id, a.result AS value
		  FROM mission_actions a JOIN proposals p ON p.id = a.proposal_id
		 WHERE p.session_id = ? ORDER BY a.proposal_id, a.player_id`), id); err != nil {
		return nil, fmt.Errorf("load mission actions: %w", err)
	}
	for _, a := range actions {
		if p, ok := proposalByID[a.ProposalID]; ok {
			p.Actions = append(p.Actions, game.MissionAction{PlayerID: a.PlayerID, Result: game.MissionResult(a.Value)})
		}
	}

	var pending []pendingRow
	if err := sqlx.SelectContext(ctx, q, &pending, q.Rebind(`
		SELECT leader_id, team, source_text, expires_at
		  FROM pending_proposals WHERE session_id = ?`), id); err != nil {
		return nil, fmt.Errorf("load pending proposals: %w", err)
	}
	for _, pp := range pending {
		var team []string
		if err := json.Unmarshal([]byte(pp.Team), &team); err != nil {
			return nil, fmt.Errorf("decode pending team: %w", err)
		}
		session.Pending = append(session.Pending, &game.PendingProposal{
			LeaderID:  pp.LeaderID,
			Team:      team,
			Text:      pp.SourceText,
			ExpiresAt: fromMillis(pp.ExpiresAt),
		})
	}

	return session, nil
}

func (s *SQLStore) save(ctx context.Context, tx *sqlx.Tx, session *game.Session) error {
	roles, err := encodeList(session.ActiveRoles)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE sessions SET
		  status = ?, phase = ?, max_players = ?, active_roles = ?,
		  current_leader_index = ?, current_round_number = ?,
		  winner = ?, win_reason = ?, assassin_target = ?, updated_at = ?
		WHERE id = ?`),
		string(session.Status),
		string(session.Phase),
		session.MaxPlayers,
		roles,
		session.CurrentLeaderIndex,
		session.CurrentRoundNumber,
		string(session.Winner),
		session.WinReason,
		session.AssassinTarget,
		toMillis(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return translateWriteErr("update session", err)
	}

	return s.saveChildren(ctx, tx, session)
}

func (s *SQLStore) saveChildren(ctx context.Context, tx *sqlx.Tx, session *game.Session) error {
	for _, p := range session.Participants {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO participants (id, session_id, identity, display_name, is_host, is_ready, seat, role, joined_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
			  display_name = excluded.display_name,
			  is_host = excluded.is_host,
			  is_ready = excluded.is_ready,
			  role = excluded.role`),
			p.ID, session.ID, p.Identity, p.Name, boolInt(p.IsHost), boolInt(p.IsReady), p.Index, string(p.Role), toMillis(p.JoinedAt),
		)
		if err != nil {
			return translateWriteErr("save participant", err)
		}
	}

	for _, r := range session.Rounds {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO rounds (id, session_id, round_number, required_players, fails_required, is_success)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET is_success = excluded.is_success`),
			r.ID, session.ID, r.Number, r.RequiredPlayers, r.FailsRequired, toNullable(r.IsSuccess),
		)
		if err != nil {
			return translateWriteErr("save round", err)
		}

		for seq, p := range r.Proposals {
			if err := s.saveProposal(ctx, tx, session.ID, seq, p); err != nil {
				return err
			}
		}
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM pending_proposals WHERE session_id = ?`), session.ID); err != nil {
		return translateWriteErr("clear pending proposals", err)
	}
	for _, pp := range session.Pending {
		team, err := encodeList(pp.Team)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO pending_proposals (session_id, leader_id, team, source_text, expires_at)
			VALUES (?, ?, ?, ?, ?)`),
			session.ID, pp.LeaderID, team, pp.Text, toMillis(pp.ExpiresAt),
		)
		if err != nil {
			return translateWriteErr("save pending proposal", err)
		}
	}

	return nil
}

func (s *SQLStore) saveProposal(ctx context.Context, tx *sqlx.Tx, sessionID string, seq int, p *game.Proposal) error {
	team, err := encodeList(p.Team)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO proposals (id, session_id, round_id, proposer_id, team, is_approved, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET is_approved = excluded.is_approved`),
		p.ID, sessionID, p.RoundID, p.ProposerID, team, toNullable(p.IsApproved), seq, toMillis(p.CreatedAt),
	)
	if err != nil {
		return translateWriteErr("save proposal", err)
	}

	// 投票按 (提名, 玩家) 覆盖写入
	for _, v := range p.Votes {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO votes (proposal_id, player_id, decision) VALUES (?, ?, ?)
			ON CONFLICT (proposal_id, player_id) DO UPDATE SET decision = excluded.decision`),
			p.ID, v.PlayerID, string(v.Decision),
		)
		if err != nil {
			return translateWriteErr("save vote", err)
		}
	}

	// 任务结果一经提交不可更改
	for _, a := range p.Actions {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO mission_actions (proposal_id, player_id, result) VALUES (?, ?, ?)
			ON CONFLICT (proposal_id, player_id) DO NOTHING`),
			p.ID, a.PlayerID, string(a.Result),
		)
		if err != nil {
			return translateWriteErr("save mission action", err)
		}
	}

	return nil
}

func translateWriteErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrAlreadyExists, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 为 PostgreSQL 的 unique_violation
		return pgErr.Code == "23505"
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}

	return false
}

func encodeList[T ~string](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}

	return string(data), nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

func toNullable(b *bool) any {
	if b == nil {
		return nil
	}

	return boolInt(*b)
}

func fromNullable(v sql.NullInt64) *bool {
	if !v.Valid {
		return nil
	}

	b := v.Int64 != 0
	return &b
}
