package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/festmap/internal/model"
)

// 数据集文件名（位于数据目录下）
const (
	RawMoviesFile  = "raw_movie_details.json"
	EmbeddingsFile = "embeddings.json"
	ProjectionFile = "umap_embeddings.json"
	FullMoviesFile = "full_movie_details.json"
)

// Dataset 流水线各阶段落盘的 JSON 文件
// 阶段之间除此之外不共享任何状态
type Dataset struct {
	dir string
}

func NewDataset(dir string) *Dataset {
	return &Dataset{dir: dir}
}

// Dir 数据目录
func (d *Dataset) Dir() string { return d.dir }

// Path 返回数据文件的完整路径
func (d *Dataset) Path(name string) string {
	return filepath.Join(d.dir, name)
}

// SaveRawMovies 写入抓取结果
func (d *Dataset) SaveRawMovies(movies []model.MovieRecord) error {
	if movies == nil {
		movies = []model.MovieRecord{}
	}
	return d.writeJSON(RawMoviesFile, movies, true)
}

// LoadRawMovies 读取抓取结果
func (d *Dataset) LoadRawMovies() ([]model.MovieRecord, error) {
	var movies []model.MovieRecord
	err := d.readJSON(RawMoviesFile, &movies)
	return movies, err
}

// SaveEmbeddings 写入原始向量（与 raw_movie_details 顺序一致）
func (d *Dataset) SaveEmbeddings(vectors [][]float32) error {
	return d.writeJSON(EmbeddingsFile, vectors, false)
}

// LoadEmbeddings 读取原始向量
func (d *Dataset) LoadEmbeddings() ([][]float32, error) {
	var vectors [][]float32
	err := d.readJSON(EmbeddingsFile, &vectors)
	return vectors, err
}

// SaveProjection 写入二维坐标 [[x, y], ...]
func (d *Dataset) SaveProjection(points []model.Point) error {
	pairs := make([][2]float64, len(points))
	for i, p := range points {
		pairs[i] = [2]float64{p.X, p.Y}
	}
	return d.writeJSON(ProjectionFile, pairs, false)
}

// LoadProjection 读取二维坐标
func (d *Dataset) LoadProjection() ([][2]float64, error) {
	var pairs [][2]float64
	err := d.readJSON(ProjectionFile, &pairs)
	return pairs, err
}

// SaveFullMovies 写入带坐标的最终数据集
func (d *Dataset) SaveFullMovies(movies []model.EnrichedMovieRecord) error {
	if movies == nil {
		movies = []model.EnrichedMovieRecord{}
	}
	return d.writeJSON(FullMoviesFile, movies, true)
}

// LoadFullMovies 读取最终数据集
func (d *Dataset) LoadFullMovies() ([]model.EnrichedMovieRecord, error) {
	var movies []model.EnrichedMovieRecord
	err := d.readJSON(FullMoviesFile, &movies)
	return movies, err
}

// writeJSON 先写临时文件再改名，避免读方看到写了一半的文件
func (d *Dataset) writeJSON(name string, v interface{}, indent bool) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// 保留波兰语等非 ASCII 字符与 & 等符号的原样输出
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", name, err)
	}

	tmp, err := os.CreateTemp(d.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("写入 %s 失败: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("写入 %s 失败: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), d.Path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("保存 %s 失败: %w", name, err)
	}
	return nil
}

func (d *Dataset) readJSON(name string, v interface{}) error {
	b, err := os.ReadFile(d.Path(name))
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", name, err)
	}
	return nil
}
