// Package inventory_repo provides the PostgreSQL implementation of the
// inventory repository.
package inventory_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/klauspost/compress/zstd"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/apperror"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/storage/postgres"
)

const (
	levelsTable    = "inv_levels"
	movementsTable = "inv_movements"

	// uniqueViolation is the PostgreSQL error code for duplicate keys.
	uniqueViolation = "23505"
)

// CompressionAlgo specifies the compression algorithm used for metadata.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// LevelRepo implements inventory.Repository on PostgreSQL.
type LevelRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	// compressThreshold is the metadata size in bytes above which
	// movement metadata is stored zstd-compressed.
	compressThreshold int
}

// NewLevelRepo creates a new inventory level repository.
func NewLevelRepo(txm *postgres.TxManager) (*LevelRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &LevelRepo{
		txm:               txm,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// CreateLevel inserts a new level row.
func (r *LevelRepo) CreateLevel(ctx context.Context, level *inventory.Level) error {
	q := r.builder.Insert(levelsTable).Columns(
		"item_id", "warehouse_id",
		"current_quantity", "reserved_quantity",
		"location_code", "bin_code",
		"version", "last_movement_at", "created_at", "updated_at",
	).Values(
		level.ItemID, level.WarehouseID,
		level.CurrentQuantity, level.ReservedQuantity,
		level.LocationCode, level.BinCode,
		level.Version, level.LastMovementAt, level.CreatedAt, level.UpdatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.NewDuplicate("inventory level",
				level.ItemID.String()+"/"+level.WarehouseID.String())
		}
		return fmt.Errorf("insert level: %w", err)
	}

	return nil
}

// GetLevel returns the level for the pair.
func (r *LevelRepo) GetLevel(ctx context.Context, itemID, warehouseID id.ID) (*inventory.Level, error) {
	q := r.builder.Select(
		"item_id", "warehouse_id",
		"current_quantity", "reserved_quantity",
		"location_code", "bin_code",
		"version", "last_movement_at", "created_at", "updated_at",
	).From(levelsTable).
		Where(squirrel.Eq{
			"item_id":      itemID,
			"warehouse_id": warehouseID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level inventory.Level
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory level", itemID.String()+"/"+warehouseID.String())
		}
		return nil, fmt.Errorf("get level: %w", err)
	}

	return &level, nil
}

// UpdateLevel writes the level conditioned on its version, bumping it on
// success. A zero-row update means another writer committed in between.
func (r *LevelRepo) UpdateLevel(ctx context.Context, level *inventory.Level) error {
	q := r.builder.Update(levelsTable).
		Set("current_quantity", level.CurrentQuantity).
		Set("reserved_quantity", level.ReservedQuantity).
		Set("location_code", level.LocationCode).
		Set("bin_code", level.BinCode).
		Set("version", level.Version+1).
		Set("last_movement_at", level.LastMovementAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{
			"item_id":      level.ItemID,
			"warehouse_id": level.WarehouseID,
			"version":      level.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update level: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("level was modified concurrently")
	}

	level.Version++
	return nil
}

// AppendMovement inserts a movement row, compressing large metadata.
func (r *LevelRepo) AppendMovement(ctx context.Context, movement inventory.Movement) error {
	metadata := movement.Metadata
	var metadataCompressed []byte
	algo := CompressionNone

	if len(metadata) > r.compressThreshold {
		metadataCompressed = r.encoder.EncodeAll(metadata, nil)
		metadata = nil
		algo = CompressionZstd
	}

	q := r.builder.Insert(movementsTable).Columns(
		"line_id", "item_id", "warehouse_id",
		"delta", "reason", "reference_number", "actor_id",
		"metadata", "metadata_compressed", "compression_algo",
		"created_at",
	).Values(
		movement.LineID, movement.ItemID, movement.WarehouseID,
		movement.Delta, movement.Reason, movement.ReferenceNumber, movement.ActorID,
		metadata, metadataCompressed, algo,
		movement.CreatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return nil
}

// ListLevels returns levels matching the filter.
func (r *LevelRepo) ListLevels(ctx context.Context, filter inventory.LevelFilter) ([]inventory.Level, error) {
	q := r.builder.Select(
		"item_id", "warehouse_id",
		"current_quantity", "reserved_quantity",
		"location_code", "bin_code",
		"version", "last_movement_at", "created_at", "updated_at",
	).From(levelsTable)

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}

	if len(filter.ItemIDs) > 0 {
		q = q.Where(squirrel.Eq{"item_id": filter.ItemIDs})
	}

	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"current_quantity": int64(0)})
	}

	q = q.OrderBy("item_id", "warehouse_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []inventory.Level
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &levels, sql, args...); err != nil {
		return nil, fmt.Errorf("select levels: %w", err)
	}

	return levels, nil
}

// movementRow carries the compression columns alongside the movement.
type movementRow struct {
	inventory.Movement
	MetadataCompressed []byte          `db:"metadata_compressed"`
	CompressionAlgo    CompressionAlgo `db:"compression_algo"`
}

// ListMovements returns movement history for a pair, newest first.
func (r *LevelRepo) ListMovements(ctx context.Context, itemID, warehouseID id.ID, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	q := r.builder.Select(
		"line_id", "item_id", "warehouse_id",
		"delta", "reason", "reference_number", "actor_id",
		"metadata", "metadata_compressed", "compression_algo",
		"created_at",
	).From(movementsTable).
		Where(squirrel.Eq{
			"item_id":      itemID,
			"warehouse_id": warehouseID,
		})

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC", "line_id DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	movements := make([]inventory.Movement, 0, len(rows))
	for _, row := range rows {
		m := row.Movement
		if row.CompressionAlgo == CompressionZstd && len(row.MetadataCompressed) > 0 {
			decompressed, err := r.decoder.DecodeAll(row.MetadataCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress metadata: %w", err)
			}
			m.Metadata = decompressed
		}
		movements = append(movements, m)
	}

	return movements, nil
}

// Ensure interface compliance.
var _ inventory.Repository = (*LevelRepo)(nil)
