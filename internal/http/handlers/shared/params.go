package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxParamBodyBytes = 1 << 20

// Params 合并后的请求参数
type Params map[string]string

// Get 读取参数，不存在时返回空串
func (p Params) Get(key string) string {
	return p[key]
}

// Int 读取整数参数，解析失败返回默认值
func (p Params) Int(key string, fallback int) int {
	raw := strings.TrimSpace(p[key])
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// Bool 读取布尔参数，兼容 1/true/yes
func (p Params) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(p[key])) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// ReadParams 合并查询串、表单与 JSON 请求体参数，后者覆盖前者。
// 请求体读取后会被还原，后续仍可再次读取。
func ReadParams(c *gin.Context) Params {
	params := make(Params)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	if c.Request.Body == nil || c.Request.Method == "GET" {
		return params
	}

	contentType := c.ContentType()
	switch {
	case strings.HasPrefix(contentType, gin.MIMEJSON):
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxParamBodyBytes))
		if err != nil {
			return params
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		mergeJSONParams(params, raw)
	case strings.HasPrefix(contentType, gin.MIMEMultipartPOSTForm):
		if err := c.Request.ParseMultipartForm(maxParamBodyBytes); err == nil && c.Request.MultipartForm != nil {
			for key, values := range c.Request.MultipartForm.Value {
				if len(values) > 0 {
					params[key] = values[0]
				}
			}
		}
	default:
		if err := c.Request.ParseForm(); err == nil {
			for key, values := range c.Request.PostForm {
				if len(values) > 0 {
					params[key] = values[0]
				}
			}
		}
	}
	return params
}

func mergeJSONParams(params Params, raw []byte) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var body map[string]interface{}
	if err := decoder.Decode(&body); err != nil {
		return
	}
	for key, value := range body {
		switch v := value.(type) {
		case nil:
			params[key] = ""
		case string:
			params[key] = v
		case json.Number:
			params[key] = v.String()
		case bool:
			params[key] = strconv.FormatBool(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				params[key] = fmt.Sprint(v)
				continue
			}
			params[key] = string(encoded)
		}
	}
}
