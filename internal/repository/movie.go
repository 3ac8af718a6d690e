package repository

import (
	"errors"

	"github.com/pgvector/pgvector-go"
	"github.com/user/festmap/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovieRepository 电影向量库
type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// UpsertAll 按 url 批量创建或更新电影
func (r *MovieRepository) UpsertAll(rows []model.MovieRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "original_title", "director", "section", "description",
			"country_year_duration", "subtitles", "screenings", "venues",
			"embedding", "x", "y", "updated_at",
		}),
	}).CreateInBatches(rows, 100).Error
}

// FindByURL 根据详情页路径查找电影
func (r *MovieRepository) FindByURL(url string) (*model.MovieRow, error) {
	var row model.MovieRow
	err := r.db.Where("url = ?", url).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List 返回全部电影，可按单元过滤
func (r *MovieRepository) List(sections []string) ([]model.MovieRow, error) {
	var rows []model.MovieRow
	q := r.db.Omit("embedding").Order("id")
	if len(sections) > 0 {
		q = q.Where("section IN ?", sections)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// ScoredMovieRow 附带余弦距离的电影行
type ScoredMovieRow struct {
	model.MovieRow
	Distance float64 `gorm:"column:distance"`
}

// FindSimilar 按余弦距离查找与指定电影最相近的电影（不含自身）
func (r *MovieRepository) FindSimilar(url string, limit int) ([]ScoredMovieRow, error) {
	source, err := r.FindByURL(url)
	if err != nil || source == nil || source.Embedding == nil {
		return nil, err
	}
	return r.NearestTo(*source.Embedding, limit, url)
}

// NearestTo 返回与给定向量余弦距离最近的电影
func (r *MovieRepository) NearestTo(vec pgvector.Vector, limit int, excludeURL string) ([]ScoredMovieRow, error) {
	var rows []ScoredMovieRow
	err := r.db.Model(&model.MovieRow{}).
		Select("*, embedding <=> ? AS distance", vec).
		Where("embedding IS NOT NULL AND url <> ?", excludeURL).
		Order("distance").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
