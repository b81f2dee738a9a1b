package http

import "io"

// IResponseWriter 响应写入；同一请求只应写出一次状态码
type IResponseWriter interface {
	SetHeader(key, value string)

	JSON(code int, obj any) error
	String(code int, text string) error
	Data(code int, contentType string, data []byte) error
	Stream(code int, contentType string, r io.Reader) error
	NoContent(code int) error

	// WrittenStatus 已写出的状态码，未写出时为 0
	WrittenStatus() int
}

// IHttpContext 处理器与中间件看到的请求上下文
type IHttpContext interface {
	IRequestReader
	IRequestBinder
	IResponseWriter

	// GetContext 携带请求ID、客户端IP与认证信息的上下文
	GetContext() IRequestContext
	SetContext(ctx IRequestContext)
}

// HttpHandler 处理器函数；返回的错误由服务器统一写为错误响应
type HttpHandler func(ctx IHttpContext) error
