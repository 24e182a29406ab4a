package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/solidsystems/qr-trackr/pkg/core/domain"
	"github.com/solidsystems/qr-trackr/pkg/logger"
	"github.com/solidsystems/qr-trackr/pkg/ports"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver
)

// SQLite's strftime only understands this layout, so scan timestamps use it.
const scanTimeLayout = "2006-01-02 15:04:05"

const dailyScanWindow = 30 // days

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a user search term into a LIKE pattern matching it
// literally. Queries using it must declare ESCAPE '\'.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite" {
		// SQLite allows one writer at a time; scan workers would hit SQLITE_BUSY otherwise.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS qr_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		short_code TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL DEFAULT '',
		destination_type TEXT NOT NULL,
		post_id INTEGER,
		destination_url TEXT NOT NULL DEFAULT '',
		referral_code TEXT NOT NULL DEFAULT '',
		scans INTEGER NOT NULL DEFAULT 0 CHECK (scans >= 0),
		metadata JSON NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_scanned_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_qr_codes_short_code ON qr_codes(short_code);
	CREATE INDEX IF NOT EXISTS idx_qr_codes_post_id ON qr_codes(post_id);

	CREATE TABLE IF NOT EXISTS qr_scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		qr_code_id INTEGER NOT NULL,
		referer TEXT,
		user_agent TEXT,
		ip_hash TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(qr_code_id) REFERENCES qr_codes(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_qr_scans_qr_code_id ON qr_scans(qr_code_id);

	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		permalink TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'publish',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status);
	`
	_, err := db.Exec(query)
	return err
}

const qrColumns = `id, short_code, label, destination_type, post_id, destination_url, referral_code,
	scans, metadata, created_at, updated_at, last_scanned_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQRCode(row rowScanner) (*domain.QRCode, error) {
	var (
		qr           domain.QRCode
		postID       sql.NullInt64
		metadataJSON []byte
		lastScanned  sql.NullTime
		destType     string
	)
	err := row.Scan(
		&qr.ID, &qr.ShortCode, &qr.Label, &destType, &postID, &qr.DestinationURL, &qr.ReferralCode,
		&qr.Scans, &metadataJSON, &qr.CreatedAt, &qr.UpdatedAt, &lastScanned,
	)
	if err != nil {
		return nil, err
	}

	qr.DestinationType = domain.DestinationType(destType)
	if postID.Valid {
		id := postID.Int64
		qr.PostID = &id
	}
	if lastScanned.Valid {
		qr.LastScannedAt = &lastScanned.Time
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &qr.Metadata); err != nil {
			logger.Warn().Err(err).Int64("qr_code_id", qr.ID).Msg("ignoring corrupt metadata")
		}
	}
	return &qr, nil
}

func nullablePostID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepository) Create(ctx context.Context, qr *domain.QRCode) error {
	query := `INSERT INTO qr_codes (short_code, label, destination_type, post_id, destination_url,
				referral_code, scans, metadata, created_at, updated_at, last_scanned_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	metadataJSON, err := json.Marshal(qr.Metadata)
	if err != nil {
		return err
	}

	var lastScanned sql.NullTime
	if qr.LastScannedAt != nil {
		lastScanned = sql.NullTime{Time: *qr.LastScannedAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query,
		qr.ShortCode, qr.Label, string(qr.DestinationType), nullablePostID(qr.PostID), qr.DestinationURL,
		qr.ReferralCode, qr.Scans, metadataJSON, qr.CreatedAt, qr.UpdatedAt, lastScanned,
	)
	if isUniqueViolation(err) {
		return domain.ErrShortCodeTaken
	}
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	qr.ID = id
	return nil
}

func (r *SQLiteRepository) GetByShortCode(ctx context.Context, code string) (*domain.QRCode, error) {
	query := `SELECT ` + qrColumns + ` FROM qr_codes WHERE short_code = ?`

	qr, err := scanQRCode(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return qr, err
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*domain.QRCode, error) {
	query := `SELECT ` + qrColumns + ` FROM qr_codes WHERE id = ?`

	qr, err := scanQRCode(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return qr, err
}

// Update writes the editable fields. The scan counter is owned by RecordScan
// and is never written from here.
func (r *SQLiteRepository) Update(ctx context.Context, qr *domain.QRCode) error {
	query := `UPDATE qr_codes SET label = ?, destination_type = ?, post_id = ?, destination_url = ?,
				referral_code = ?, metadata = ?, updated_at = ?
			  WHERE id = ?`

	metadataJSON, err := json.Marshal(qr.Metadata)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query,
		qr.Label, string(qr.DestinationType), nullablePostID(qr.PostID), qr.DestinationURL,
		qr.ReferralCode, metadataJSON, qr.UpdatedAt, qr.ID,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Foreign keys are off by default in SQLite, so cascade by hand.
	if _, err := tx.ExecContext(ctx, `DELETE FROM qr_scans WHERE qr_code_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM qr_codes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var orderByColumns = map[string]string{
	"":           "created_at DESC, id DESC",
	"created_at": "created_at DESC, id DESC",
	"scans":      "scans DESC, id DESC",
	"label":      "label ASC, id ASC",
}

func filterClause(filter ports.QRCodeFilter) (string, []any) {
	if filter.Search == "" {
		return "", nil
	}
	like := containsPattern(filter.Search)
	clause := ` WHERE (label LIKE ? ESCAPE '\'
		OR short_code LIKE ? ESCAPE '\'
		OR destination_url LIKE ? ESCAPE '\')`
	return clause, []any{like, like, like}
}

func (r *SQLiteRepository) List(ctx context.Context, limit, offset int, filter ports.QRCodeFilter) ([]domain.QRCode, error) {
	where, args := filterClause(filter)
	orderBy, ok := orderByColumns[filter.OrderBy]
	if !ok {
		orderBy = orderByColumns[""]
	}

	query := `SELECT ` + qrColumns + ` FROM qr_codes` + where + ` ORDER BY ` + orderBy + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return r.queryQRCodes(ctx, query, args...)
}

func (r *SQLiteRepository) Count(ctx context.Context, filter ports.QRCodeFilter) (int64, error) {
	where, args := filterClause(filter)

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qr_codes`+where, args...).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) ListURLDestinations(ctx context.Context) ([]domain.QRCode, error) {
	query := `SELECT ` + qrColumns + ` FROM qr_codes WHERE destination_type = ? ORDER BY id`
	return r.queryQRCodes(ctx, query, string(domain.DestinationURL))
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.QRCode, error) {
	return r.queryQRCodes(ctx, `SELECT `+qrColumns+` FROM qr_codes ORDER BY id`)
}

func (r *SQLiteRepository) queryQRCodes(ctx context.Context, query string, args ...any) ([]domain.QRCode, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	qrs := []domain.QRCode{}
	for rows.Next() {
		qr, err := scanQRCode(rows)
		if err != nil {
			return nil, err
		}
		qrs = append(qrs, *qr)
	}
	return qrs, rows.Err()
}

func (r *SQLiteRepository) RecordScan(ctx context.Context, scan *domain.Scan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Increment the counter first so a vanished code aborts the insert
	res, err := tx.ExecContext(ctx,
		`UPDATE qr_codes SET scans = scans + 1, last_scanned_at = ? WHERE id = ?`,
		scan.CreatedAt, scan.QRCodeID)
	if err != nil {
		return err
	}
	if err := expectAffected(res); err != nil {
		return err
	}

	// 2. Insert scan record
	res, err = tx.ExecContext(ctx,
		`INSERT INTO qr_scans (qr_code_id, referer, user_agent, ip_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		scan.QRCodeID, scan.Referer, scan.UserAgent, scan.IPHash, scan.CreatedAt.UTC().Format(scanTimeLayout))
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		scan.ID = id
	}

	return tx.Commit()
}

func (r *SQLiteRepository) GetStats(ctx context.Context, qrCodeID int64) (*domain.QRStats, error) {
	stats := &domain.QRStats{
		Referrers:  make(map[string]int64),
		DailyScans: []domain.DailyScan{},
	}

	// Imported codes carry a counter without scan rows.
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT scans FROM qr_codes WHERE id = ?), 0)`, qrCodeID).Scan(&stats.TotalScans)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(referer, ''), COUNT(*) AS c
		FROM qr_scans
		WHERE qr_code_id = ?
		GROUP BY referer
		ORDER BY c DESC`, qrCodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ref string
		var count int64
		if err := rows.Scan(&ref, &count); err != nil {
			return nil, err
		}
		if ref == "" {
			ref = "Direct"
		}
		stats.Referrers[ref] += count
	}
	rows.Close()

	// Today plus the previous days of the window, in whole UTC days.
	since := time.Now().UTC().AddDate(0, 0, -(dailyScanWindow - 1)).Format("2006-01-02")
	rows2, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', created_at) AS date, COUNT(*)
		FROM qr_scans
		WHERE qr_code_id = ? AND created_at >= ?
		GROUP BY date
		ORDER BY date DESC`, qrCodeID, since)
	if err != nil {
		return nil, err
	}
	defer rows2.Close()
	for rows2.Next() {
		var ds domain.DailyScan
		if err := rows2.Scan(&ds.Date, &ds.Count); err != nil {
			return nil, err
		}
		stats.DailyScans = append(stats.DailyScans, ds)
	}

	return stats, rows2.Err()
}

func (r *SQLiteRepository) GetDashboardStats(ctx context.Context, limit int) ([]domain.QRCode, int64, error) {
	var totalScans int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(scans), 0) FROM qr_codes`).Scan(&totalScans)
	if err != nil {
		return nil, 0, err
	}

	top, err := r.queryQRCodes(ctx, `SELECT `+qrColumns+` FROM qr_codes ORDER BY scans DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, 0, err
	}
	return top, totalScans, nil
}

// --- Posts ---

func (r *SQLiteRepository) CreatePost(ctx context.Context, post *domain.Post) error {
	query := `INSERT INTO posts (title, permalink, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, post.Title, post.Permalink, string(post.Status), post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	post.ID = id
	return nil
}

func (r *SQLiteRepository) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	query := `SELECT id, title, permalink, status, created_at, updated_at FROM posts WHERE id = ?`

	var p domain.Post
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.Permalink, &status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Status = domain.PostStatus(status)
	return &p, nil
}

func (r *SQLiteRepository) UpdatePostStatus(ctx context.Context, id int64, status domain.PostStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET status = ?, updated_at = ? WHERE id = ?`, string(status), time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// SearchPosts returns published posts whose title contains term, newest first.
func (r *SQLiteRepository) SearchPosts(ctx context.Context, term string, limit int) ([]domain.Post, error) {
	query := `SELECT id, title, permalink, status, created_at, updated_at
			  FROM posts
			  WHERE status = ? AND title LIKE ? ESCAPE '\'
			  ORDER BY created_at DESC, id DESC
			  LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, string(domain.PostPublished), containsPattern(term), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		var p domain.Post
		var status string
		if err := rows.Scan(&p.ID, &p.Title, &p.Permalink, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Status = domain.PostStatus(status)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Ensure interface compliance
var _ ports.QRCodeRepository = (*SQLiteRepository)(nil)
