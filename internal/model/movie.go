package model

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Unknown 无法从页面解析出的字段统一使用的占位值
const Unknown = "N/A"

// Screening 一场放映（日期、时间、影厅）
type Screening struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	Venue        string `json:"venue"`
	FullDatetime string `json:"full_datetime"` // 原始的“日期, 时间”文本，保留用于追溯
}

// MovieRecord 电影节节目单中的一部电影
type MovieRecord struct {
	Title               string      `json:"title" validate:"required"`
	OriginalTitle       *string     `json:"original_title"`
	Director            string      `json:"director" validate:"required"`
	Section             string      `json:"section" validate:"required"`
	Description         string      `json:"description" validate:"required"`
	CountryYearDuration string      `json:"country_year_duration"`
	Subtitles           *string     `json:"subtitles"`
	Screenings          []Screening `json:"screenings"`
	URL                 string      `json:"url" validate:"required,detailpath"`
}

// MarshalJSON 保证 screenings 为空时输出 [] 而不是 null
func (m MovieRecord) MarshalJSON() ([]byte, error) {
	type alias MovieRecord
	a := alias(m)
	if a.Screenings == nil {
		a.Screenings = []Screening{}
	}
	return json.Marshal(a)
}

// Venues 返回该电影所有放映影厅（去重，保持首次出现顺序）
func (m MovieRecord) Venues() []string {
	seen := make(map[string]struct{}, len(m.Screenings))
	venues := make([]string, 0, len(m.Screenings))
	for _, s := range m.Screenings {
		if _, ok := seen[s.Venue]; ok {
			continue
		}
		seen[s.Venue] = struct{}{}
		venues = append(venues, s.Venue)
	}
	return venues
}

// EnrichedMovieRecord 附带二维投影坐标的电影记录
type EnrichedMovieRecord struct {
	MovieRecord
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MarshalJSON 把 x/y 平铺到原始字段之后
func (e EnrichedMovieRecord) MarshalJSON() ([]byte, error) {
	type alias MovieRecord
	a := alias(e.MovieRecord)
	if a.Screenings == nil {
		a.Screenings = []Screening{}
	}
	return json.Marshal(struct {
		alias
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}{a, e.X, e.Y})
}

// KeyedVector 带来源 URL 的向量，用于按键合并
type KeyedVector struct {
	URL    string
	Values []float32
}

// Point 带来源 URL 的二维坐标
type Point struct {
	URL string
	X   float64
	Y   float64
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator 返回共享的校验器（注册了 detailpath 规则）
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("detailpath", func(fl validator.FieldLevel) bool {
			return DetailPathPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateRecord 校验一条记录是否满足最基本的结构约束
func ValidateRecord(m MovieRecord) error {
	if err := Validator().Struct(m); err != nil {
		return fmt.Errorf("记录校验失败 (%s): %w", m.URL, err)
	}
	return nil
}
