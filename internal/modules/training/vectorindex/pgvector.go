package vectorindex

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"regexp"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PgvectorBackend keeps chunks in a Postgres table with a vector column and
// searches with the cosine-distance operator <=>.
type PgvectorBackend struct {
	db    *gorm.DB
	table string
	dim   int
}

type pgChunkRow struct {
	ID             string          `gorm:"column:id;primaryKey"`
	ModuleID       string          `gorm:"column:module_id"`
	ModuleName     string          `gorm:"column:module_name"`
	CompetencyArea string          `gorm:"column:competency_area"`
	Page           int             `gorm:"column:page"`
	ChunkIndex     int             `gorm:"column:chunk_index"`
	Text           string          `gorm:"column:text"`
	EmbedModel     string          `gorm:"column:embed_model"`
	Embedding      pgvector.Vector `gorm:"column:embedding"`
}

type pgHitRow struct {
	pgChunkRow
	Distance float64 `gorm:"column:distance"`
}

func NewPgvectorBackend(db *gorm.DB, table string, dim int) (*PgvectorBackend, error) {
	if table == "" {
		table = "module_chunks"
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid pgvector table name %q", table)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("pgvector dimension must be positive")
	}
	return &PgvectorBackend{db: db, table: table, dim: dim}, nil
}

// EnsureSchema creates the extension, table and indexes if missing.
func (b *PgvectorBackend) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			module_id TEXT NOT NULL,
			module_name TEXT NOT NULL DEFAULT '',
			competency_area TEXT NOT NULL DEFAULT '',
			page INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			embed_model TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL
		)`, b.table, b.dim),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS embed_model TEXT NOT NULL DEFAULT ''`, b.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_module ON %s (module_id)`, b.table, b.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_competency ON %s (competency_area)`, b.table, b.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)`, b.table, b.table),
	}
	for _, s := range stmts {
		if err := b.db.WithContext(ctx).Exec(s).Error; err != nil {
			return b.wrap(fmt.Errorf("ensure pgvector schema: %w", err))
		}
	}
	return nil
}

func (b *PgvectorBackend) Name() string { return "pgvector" }

// Replace runs delete and insert in one transaction, so readers never see a
// module with zero chunks.
func (b *PgvectorBackend) Replace(ctx context.Context, moduleID string, records []Record) error {
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE module_id = ?`, b.table), moduleID).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]pgChunkRow, len(records))
		for i, r := range records {
			if len(r.Vector) != b.dim {
				return fmt.Errorf("chunk %s dimension mismatch: expected=%d got=%d", r.Chunk.ID, b.dim, len(r.Vector))
			}
			rows[i] = pgChunkRow{
				ID:             r.Chunk.ID,
				ModuleID:       r.Chunk.ModuleID,
				ModuleName:     r.Chunk.ModuleName,
				CompetencyArea: r.Chunk.CompetencyArea,
				Page:           r.Chunk.Page,
				ChunkIndex:     r.Chunk.ChunkIndex,
				Text:           r.Chunk.Text,
				Embedding:      pgvector.NewVector(r.Vector),
			}
		}
		return tx.Table(b.table).CreateInBatches(rows, 100).Error
	})
	return b.wrap(err)
}

func (b *PgvectorBackend) Search(ctx context.Context, vector []float32, k int, filter SearchFilter) ([]Hit, error) {
	q := b.db.WithContext(ctx).
		Table(b.table).
		Select("id, module_id, module_name, competency_area, page, chunk_index, text, embed_model, embedding <=> ? AS distance", pgvector.NewVector(vector))
	if filter.Competency != "" {
		q = q.Where("competency_area = ?", filter.Competency)
	}
	if filter.EmbedModel != "" {
		q = q.Where("embed_model = ?", filter.EmbedModel)
	}
	var rows []pgHitRow
	if err := q.Order("distance ASC, id ASC").Limit(k).Scan(&rows).Error; err != nil {
		return nil, b.wrap(err)
	}
	hits := make([]Hit, len(rows))
	for i, r := range rows {
		hits[i] = Hit{Chunk: r.chunk(), Distance: r.Distance}
	}
	return hits, nil
}

func (b *PgvectorBackend) Count(ctx context.Context) (int, error) {
	var n int64
	if err := b.db.WithContext(ctx).Table(b.table).Count(&n).Error; err != nil {
		return 0, b.wrap(err)
	}
	return int(n), nil
}

func (b *PgvectorBackend) Stats(ctx context.Context) (Stats, error) {
	var rows []struct {
		ModuleID       string
		ModuleName     string
		CompetencyArea string
		Chunks         int
	}
	err := b.db.WithContext(ctx).
		Table(b.table).
		Select("module_id, MAX(module_name) AS module_name, MAX(competency_area) AS competency_area, COUNT(*) AS chunks").
		Group("module_id").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, b.wrap(err)
	}
	st := Stats{Modules: make(map[string]ModuleStats, len(rows))}
	for _, r := range rows {
		st.Modules[r.ModuleID] = ModuleStats{Name: r.ModuleName, CompetencyArea: r.CompetencyArea, Chunks: r.Chunks}
		st.TotalChunks += r.Chunks
	}
	st.TotalModules = len(rows)
	return st, nil
}

func (r pgChunkRow) chunk() Chunk {
	return Chunk{
		ID:             r.ID,
		ModuleID:       r.ModuleID,
		ModuleName:     r.ModuleName,
		CompetencyArea: r.CompetencyArea,
		Page:           r.Page,
		ChunkIndex:     r.ChunkIndex,
		Text:           r.Text,
		EmbedModel:     r.EmbedModel,
	}
}

func (b *PgvectorBackend) wrap(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return unavailable(err)
	}
	return err
}
