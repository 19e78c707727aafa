package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,

	triage_level TEXT NOT NULL,
	triage_score INTEGER NOT NULL,
	triage_confidence REAL NOT NULL,
	triage_message TEXT,
	triage_action TEXT,

	snr_db REAL,
	speech_percentage REAL,
	quality_is_reliable INTEGER,

	whisper_transcription TEXT,
	whisper_confidence REAL,
	whisper_avg_logprob REAL,

	wer_score REAL,
	wer_severity TEXT,

	agreement_percentage REAL,
	agreement_consensus TEXT,
	agreement_verdict TEXT,

	flags_json TEXT,
	detailed_flags_json TEXT,
	features_json TEXT,

	status TEXT DEFAULT 'pending',
	priority INTEGER NOT NULL,
	notes TEXT,
	reviewed_by TEXT,
	referred_to TEXT
);

CREATE INDEX IF NOT EXISTS idx_priority_status ON patients (status, priority, created_at);
`

const caseColumns = `rowid, id, created_at, updated_at,
	triage_level, triage_score, triage_confidence, triage_message, triage_action,
	snr_db, speech_percentage, quality_is_reliable,
	whisper_transcription, whisper_confidence, whisper_avg_logprob,
	wer_score, wer_severity,
	agreement_percentage, agreement_consensus, agreement_verdict,
	flags_json, detailed_flags_json, features_json,
	status, priority, notes, reviewed_by, referred_to`

// SQLiteStore keeps the queue in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	// One connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize queue schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create inserts c.
func (s *SQLiteStore) Create(ctx context.Context, c *Case) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (
			id, created_at, updated_at,
			triage_level, triage_score, triage_confidence, triage_message, triage_action,
			snr_db, speech_percentage, quality_is_reliable,
			whisper_transcription, whisper_confidence, whisper_avg_logprob,
			wer_score, wer_severity,
			agreement_percentage, agreement_consensus, agreement_verdict,
			flags_json, detailed_flags_json, features_json,
			status, priority, notes, reviewed_by, referred_to
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CreatedAt, c.UpdatedAt,
		c.TriageLevel, c.TriageScore, c.TriageConfidence, c.TriageMessage, c.TriageAction,
		c.SNRDB, c.SpeechPercentage, boolToInt(c.QualityIsReliable),
		c.WhisperTranscription, c.WhisperConfidence, c.WhisperAvgLogprob,
		c.WERScore, c.WERSeverity,
		c.AgreementPercentage, c.AgreementConsensus, c.AgreementVerdict,
		string(c.Flags), string(c.DetailedFlags), string(c.Features),
		string(c.Status), c.Priority, c.Notes, c.ReviewedBy, c.ReferredTo,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("failed to insert patient %s: %w", c.ID, ErrDuplicateID)
		}
		return fmt.Errorf("failed to insert patient %s: %w", c.ID, err)
	}

	if seq, err := res.LastInsertId(); err == nil {
		c.Seq = uint64(seq)
	}
	return nil
}

// List returns cases in queue order.
func (s *SQLiteStore) List(ctx context.Context, status Status) ([]Case, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+caseColumns+`
			FROM patients
			WHERE status = ?
			ORDER BY priority ASC, created_at ASC, rowid ASC`, string(status))
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+caseColumns+`
			FROM patients
			ORDER BY
				CASE status
					WHEN 'pending' THEN 1
					WHEN 'reviewing' THEN 2
					WHEN 'referred' THEN 3
					WHEN 'completed' THEN 4
					ELSE 5
				END,
				priority ASC,
				created_at ASC,
				rowid ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	cases := []Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, *c)
	}
	return cases, rows.Err()
}

// Get returns the case with id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Case, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM patients WHERE id = ?`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// UpdateStatus applies u in a single statement.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, u Update) (*Case, error) {
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{string(u.Status), u.UpdatedAt}

	if u.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *u.Notes)
	}
	if u.ReviewedBy != nil {
		sets = append(sets, "reviewed_by = ?")
		args = append(args, *u.ReviewedBy)
	}
	if u.ReferredTo != nil {
		sets = append(sets, "referred_to = ?")
		args = append(args, *u.ReferredTo)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE patients SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, id)
}

// Delete removes the case with id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates counts in SQL.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	stats := newStats()

	rows, err := s.db.QueryContext(ctx, `
		SELECT triage_level, COUNT(*)
		FROM patients
		WHERE status IN ('pending', 'reviewing')
		GROUP BY triage_level`)
	if err != nil {
		return stats, fmt.Errorf("failed to count levels: %w", err)
	}
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("failed to scan level count: %w", err)
		}
		if _, ok := stats.ByLevel[level]; ok {
			stats.ByLevel[level] = count
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM patients GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("failed to count statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.ByStatus[status] = count
		stats.TotalCount += count
		if Status(status).Active() {
			stats.ActiveCount += count
		}
	}
	return stats, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner) (*Case, error) {
	var (
		c                                 Case
		seq                               int64
		message, action                   sql.NullString
		snr, speech                       sql.NullFloat64
		reliable                          sql.NullInt64
		transcription                     sql.NullString
		whisperConf, logprob              sql.NullFloat64
		wer                               sql.NullFloat64
		severity                          sql.NullString
		agreement                         sql.NullFloat64
		consensus, verdict                sql.NullString
		flags, detailedFlags, features    sql.NullString
		status, notes, reviewed, referred sql.NullString
	)

	err := row.Scan(&seq, &c.ID, &c.CreatedAt, &c.UpdatedAt,
		&c.TriageLevel, &c.TriageScore, &c.TriageConfidence, &message, &action,
		&snr, &speech, &reliable,
		&transcription, &whisperConf, &logprob,
		&wer, &severity,
		&agreement, &consensus, &verdict,
		&flags, &detailedFlags, &features,
		&status, &c.Priority, &notes, &reviewed, &referred)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}

	c.Seq = uint64(seq)
	c.TriageMessage = message.String
	c.TriageAction = action.String
	c.SNRDB = nullFloat(snr)
	c.SpeechPercentage = nullFloat(speech)
	c.QualityIsReliable = reliable.Valid && reliable.Int64 != 0
	c.WhisperTranscription = nullString(transcription)
	c.WhisperConfidence = nullFloat(whisperConf)
	c.WhisperAvgLogprob = nullFloat(logprob)
	c.WERScore = nullFloat(wer)
	c.WERSeverity = nullString(severity)
	c.AgreementPercentage = nullFloat(agreement)
	c.AgreementConsensus = nullString(consensus)
	c.AgreementVerdict = nullString(verdict)
	c.Flags = rawColumn(flags, emptyList)
	c.DetailedFlags = rawColumn(detailedFlags, emptyList)
	c.Features = rawColumn(features, emptyObject)
	c.Status = Status(status.String)
	if !status.Valid {
		c.Status = StatusPending
	}
	c.Notes = notes.String
	c.ReviewedBy = nullString(reviewed)
	c.ReferredTo = nullString(referred)

	return &c, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func rawColumn(v sql.NullString, def json.RawMessage) json.RawMessage {
	if !v.Valid || v.String == "" {
		return def
	}
	return json.RawMessage(v.String)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isConstraintViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
