package basic

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"pflanzen/errors"
	httpx "pflanzen/http"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodySize 请求体上限（附件上传同样受限）
const maxBodySize = 16 << 20

type HttpContext struct {
	request *http.Request
	writer  *statusWriter
	reqCtx  httpx.IRequestContext
}

// statusWriter 记录已写出的状态码，供日志与指标中间件读取
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func NewBaseHttpContext(w http.ResponseWriter, r *http.Request) *HttpContext {
	return &HttpContext{
		request: r,
		writer:  &statusWriter{ResponseWriter: w},
		reqCtx:  NewRequestContext(r.Context()),
	}
}

// implement httpx.IHttpContext
func (c *HttpContext) GetMethod() string           { return c.request.Method }
func (c *HttpContext) GetPath() string             { return c.request.URL.Path }
func (c *HttpContext) GetQuery(key string) string  { return c.request.URL.Query().Get(key) }
func (c *HttpContext) GetHeader(key string) string { return c.request.Header.Get(key) }
func (c *HttpContext) GetParam(key string) string  { return c.request.PathValue(key) }
func (c *HttpContext) readBody() ([]byte, error) {
	defer c.request.Body.Close()
	buf, err := io.ReadAll(io.LimitReader(c.request.Body, maxBodySize))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to read request body")
	}
	return buf, nil
}
func (c *HttpContext) BindJSON(obj any) error {
	body, err := c.readBody()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, obj); err != nil {
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to parse JSON")
	}
	return nil
}
func (c *HttpContext) BindForm() (url.Values, error) {
	c.request.Body = http.MaxBytesReader(c.writer, c.request.Body, maxBodySize)
	if err := c.request.ParseForm(); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to parse form")
	}
	return c.request.PostForm, nil
}
func (c *HttpContext) SetHeader(key, value string) { c.writer.Header().Set(key, value) }
func (c *HttpContext) JSON(code int, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInternal, "failed to serialize JSON")
	}
	return c.Data(code, "application/json; charset=utf-8", data)
}
func (c *HttpContext) String(code int, text string) error {
	return c.Data(code, "text/plain; charset=utf-8", []byte(text))
}
func (c *HttpContext) Data(code int, contentType string, data []byte) error {
	c.SetHeader("Content-Type", contentType)
	c.writer.WriteHeader(code)
	_, err := c.writer.Write(data)
	return err
}
func (c *HttpContext) Stream(code int, contentType string, r io.Reader) error {
	c.SetHeader("Content-Type", contentType)
	c.writer.WriteHeader(code)
	_, err := io.Copy(c.writer, r)
	return err
}
func (c *HttpContext) NoContent(code int) error {
	c.writer.WriteHeader(code)
	return nil
}
func (c *HttpContext) WrittenStatus() int                   { return c.writer.status }
func (c *HttpContext) GetContext() httpx.IRequestContext    { return c.reqCtx }
func (c *HttpContext) SetContext(ctx httpx.IRequestContext) { c.reqCtx = ctx }
func (c *HttpContext) GetQueryParams() url.Values           { return c.request.URL.Query() }
func (c *HttpContext) GetRequest() *http.Request {
	return c.request.WithContext(c.reqCtx)
}

// ClientIP 优先取 X-Forwarded-For 的首个地址
func (c *HttpContext) ClientIP() string {
	if fwd := c.request.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(c.request.RemoteAddr)
	if err != nil {
		return c.request.RemoteAddr
	}
	return host
}
