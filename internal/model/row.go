package model

import (
	"encoding/json"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// MovieRow 向量库中的电影行
type MovieRow struct {
	ID                  int              `json:"id" gorm:"primaryKey"`
	URL                 string           `json:"url" gorm:"uniqueIndex"`
	Title               string           `json:"title"`
	OriginalTitle       *string          `json:"original_title"`
	Director            string           `json:"director"`
	Section             string           `json:"section" gorm:"index"`
	Description         string           `json:"description"`
	CountryYearDuration string           `json:"country_year_duration"`
	Subtitles           *string          `json:"subtitles"`
	Screenings          string           `json:"screenings"` // JSON 数组
	Venues              pq.StringArray   `json:"venues" gorm:"type:text[]"`
	Embedding           *pgvector.Vector `json:"-" gorm:"type:vector"`
	X                   float64          `json:"x"`
	Y                   float64          `json:"y"`
	UpdatedAt           time.Time        `json:"updated_at" gorm:"index"`
}

// TableName 固定表名
func (MovieRow) TableName() string { return "festival_movies" }

// NewMovieRow 由富化记录与其向量构建数据库行
func NewMovieRow(m EnrichedMovieRecord, vec []float32) MovieRow {
	screenings := m.Screenings
	if screenings == nil {
		screenings = []Screening{}
	}
	screeningsJSON, _ := json.Marshal(screenings)

	row := MovieRow{
		URL:                 m.URL,
		Title:               m.Title,
		OriginalTitle:       m.OriginalTitle,
		Director:            m.Director,
		Section:             m.Section,
		Description:         m.Description,
		CountryYearDuration: m.CountryYearDuration,
		Subtitles:           m.Subtitles,
		Screenings:          string(screeningsJSON),
		Venues:              pq.StringArray(m.Venues()),
		X:                   m.X,
		Y:                   m.Y,
		UpdatedAt:           time.Now(),
	}
	if len(vec) > 0 {
		v := pgvector.NewVector(vec)
		row.Embedding = &v
	}
	return row
}

// Record 把数据库行还原为富化记录
func (r MovieRow) Record() EnrichedMovieRecord {
	var screenings []Screening
	if err := json.Unmarshal([]byte(r.Screenings), &screenings); err != nil {
		log.Printf("[向量] 放映场次解析失败 %s: %v", r.URL, err)
	}
	if screenings == nil {
		screenings = []Screening{}
	}
	return EnrichedMovieRecord{
		MovieRecord: MovieRecord{
			Title:               r.Title,
			OriginalTitle:       r.OriginalTitle,
			Director:            r.Director,
			Section:             r.Section,
			Description:         r.Description,
			CountryYearDuration: r.CountryYearDuration,
			Subtitles:           r.Subtitles,
			Screenings:          screenings,
			URL:                 r.URL,
		},
		X: r.X,
		Y: r.Y,
	}
}
