package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/transaction"
)

const seatColumns = `id, event_id, seat_number, row_label, section, category, price, status,
	holder_id, order_id, reserved_at, expires_at, created_at, updated_at, version`

type seatRow struct {
	ID         string          `db:"id"`
	EventID    string          `db:"event_id"`
	SeatNumber string          `db:"seat_number"`
	Row        string          `db:"row_label"`
	Section    string          `db:"section"`
	Category   string          `db:"category"`
	Price      decimal.Decimal `db:"price"`
	Status     string          `db:"status"`
	HolderID   *string         `db:"holder_id"`
	OrderID    *string         `db:"order_id"`
	ReservedAt *time.Time      `db:"reserved_at"`
	ExpiresAt  *time.Time      `db:"expires_at"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
	Version    int             `db:"version"`
}

func (r *seatRow) toEntity() (*seat.Seat, error) {
	state, err := seat.RestoreState(seat.Status(r.Status), r.HolderID, r.OrderID, r.ReservedAt, r.ExpiresAt)
	if err != nil {
		return nil, seat.ErrInconsistentStorage.WithSeats([]string{r.ID}, []string{r.SeatNumber})
	}
	return &seat.Seat{
		ID: r.ID, EventID: r.EventID, SeatNumber: r.SeatNumber,
		Row: r.Row, Section: r.Section, Category: seat.Category(r.Category),
		Price: r.Price, State: state,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}, nil
}

func toEntities(rows []seatRow) ([]*seat.Seat, error) {
	seats := make([]*seat.Seat, len(rows))
	for i := range rows {
		s, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		seats[i] = s
	}
	return seats, nil
}

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) Create(ctx context.Context, s *seat.Seat) error {
	return r.CreateBulk(ctx, []*seat.Seat{s})
}

// CreateBulk は座席をトランザクション内で一括作成する（全件成功か全件失敗）
func (r *SeatRepository) CreateBulk(ctx context.Context, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	for _, s := range seats {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 500
	for i := 0; i < len(seats); i += batchSize {
		end := i + batchSize
		if end > len(seats) {
			end = len(seats)
		}
		if err := r.createBulkBatch(ctx, tx, seats[i:end]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// createBulkBatch はバッチ単位でマルチバリューINSERTを実行
func (r *SeatRepository) createBulkBatch(ctx context.Context, tx *sqlx.Tx, seats []*seat.Seat) error {
	const cols = 10
	query := `INSERT INTO seats (id, event_id, seat_number, row_label, section, category, price, status, created_at, updated_at) VALUES `
	args := make([]interface{}, 0, len(seats)*cols)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		base := i * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")
		args = append(args, s.ID, s.EventID, s.SeatNumber, s.Row, s.Section, string(s.Category),
			s.Price, string(s.Status()), s.CreatedAt, s.UpdatedAt)
	}

	query += strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return seat.ErrDuplicateSeatNumber.WithSeats(nil, seatNumbers(seats))
		}
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) GetByID(ctx context.Context, id string) (*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = $1`
	var row seatRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, seat.ErrSeatNotFound.WithSeats([]string{id}, nil)
		}
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return row.toEntity()
}

func (r *SeatRepository) GetByEventID(ctx context.Context, eventID string, status seat.Status) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE event_id = $1`
	args := []interface{}{eventID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY section, row_label, seat_number`

	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	return toEntities(rows)
}

func (r *SeatRepository) GetByOrderID(ctx context.Context, orderID string) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE order_id = $1 AND status = 'allocated' ORDER BY section, row_label, seat_number`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, orderID); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	return toEntities(rows)
}

// GetByIDsForUpdate は行ロック付きで座席を取得する
// UUID として解釈できないIDは存在しないものとして扱う
func (r *SeatRepository) GetByIDsForUpdate(ctx context.Context, tx transaction.Tx, ids []string) ([]*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, seat.Internal("PostgreSQL のトランザクションが必要です", nil)
	}

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*seat.Seat{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+seatColumns+` FROM seats WHERE id IN (?) ORDER BY id FOR UPDATE`, valid)
	if err != nil {
		return nil, fmt.Errorf("クエリ構築に失敗: %w", err)
	}

	var rows []seatRow
	if err := sqlxTx.SelectContext(ctx, &rows, sqlxTx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return toEntities(rows)
}

// UpdateBatch は座席の状態をバージョン検査付きで更新する
func (r *SeatRepository) UpdateBatch(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return seat.Internal("PostgreSQL のトランザクションが必要です", nil)
	}

	const query = `UPDATE seats
		SET status = $1, holder_id = $2, order_id = $3, reserved_at = $4, expires_at = $5,
			updated_at = $6, version = version + 1
		WHERE id = $7 AND version = $8`

	for _, s := range seats {
		result, err := sqlxTx.ExecContext(ctx, query,
			string(s.Status()), s.HolderID(), s.OrderID(), s.ReservedAt(), s.ExpiresAt(),
			s.UpdatedAt, s.ID, s.Version)
		if err != nil {
			return fmt.Errorf("座席更新に失敗: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("座席更新結果の取得に失敗: %w", err)
		}
		if rows != 1 {
			return seat.ErrVersionConflict.WithSeats([]string{s.ID}, []string{s.SeatNumber})
		}
	}
	for _, s := range seats {
		s.Version++
	}
	return nil
}

func (r *SeatRepository) FindExpiredReservedIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `SELECT id FROM seats WHERE status = 'reserved' AND expires_at < $1 ORDER BY expires_at, id`
	args := []interface{}{now}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("期限切れ座席の検索に失敗: %w", err)
	}
	return ids, nil
}

func seatNumbers(seats []*seat.Seat) []string {
	numbers := make([]string, len(seats))
	for i, s := range seats {
		numbers[i] = s.SeatNumber
	}
	return numbers
}

var _ seat.Repository = (*SeatRepository)(nil)
