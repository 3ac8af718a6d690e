package router

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/user/festmap/internal/handler"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== 页面 ====================
	r.GET("/", h.Home)

	// ==================== API ====================
	api := r.Group("/api")
	{
		api.GET("/movies", h.Movies)
		api.GET("/movies/similar", h.Similar)
		api.GET("/sections", h.Sections)
	}
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
func LoadTemplates(templatesDir string) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(filepath.Join(templatesDir, "layouts", "*.html"))
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return nil, fmt.Errorf("未找到布局模板: %s", templatesDir)
	}

	// 组装模板文件列表
	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+1)
		files = append(files, layouts...)
		return append(files, view)
	}

	funcMap := template.FuncMap{
		"default": func(defaultValue, value interface{}) interface{} {
			switch v := value.(type) {
			case string:
				if v == "" {
					return defaultValue
				}
			case int:
				if v == 0 {
					return defaultValue
				}
			case nil:
				return defaultValue
			}
			return value
		},
	}

	pages := []string{"index"}
	for _, page := range pages {
		viewPath := filepath.Join(templatesDir, "pages", page+".html")
		r.AddFromFilesFuncs(page+".html", funcMap, assemble(viewPath)...)
	}

	return r, nil
}
