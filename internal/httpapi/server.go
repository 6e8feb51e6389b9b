// Package httpapi 提供本地 HTTP 消息端点及其客户端
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"opushelper/internal/logger"
	"opushelper/internal/protocol"
	"opushelper/pkg/api"
	"opushelper/pkg/errx"
)

// 路由
const (
	PathMessage = "/message"
	PathStatus  = "/status"
)

const maxBodySize = 1 << 20

// Server 本地消息端点
type Server struct {
	svc    api.Service
	status api.StatusFunc
	log    logger.Logger
	mux    *http.ServeMux
}

// Option 服务选项
type Option func(*Server)

// WithStatus 设置 /status 的数据来源
func WithStatus(fn api.StatusFunc) Option {
	return func(s *Server) { s.status = fn }
}

// NewServer 创建消息端点
func NewServer(svc api.Service, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{svc: svc, log: log, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc(PathMessage, s.handleMessage)
	s.mux.HandleFunc(PathStatus, s.handleStatus)
	return s
}

// ServeHTTP 实现 http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe 监听 addr 直到 ctx 取消，随后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve 在 ln 上提供服务直到 ctx 取消
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("消息端点已启动", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("正在关闭消息端点")
		return srv.Shutdown(shutdownCtx)
	}
}

// handleMessage 处理 POST /message
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, "", ErrInvalidRequest.withError(err))
		return
	}
	req, err := protocol.Decode(body)
	if err != nil {
		writeError(w, "", ErrInvalidRequest.withError(err))
		return
	}

	result, err := s.svc.HandleMessage(r.Context(), req)
	if err != nil {
		apiErr := classify(err)
		s.log.Warn("消息处理失败", "action", string(req.Action), "code", apiErr.Code, "error", err.Error())
		writeError(w, req.ID, apiErr)
		return
	}
	writeResponse(w, &protocol.Response{ID: req.ID, Result: result})
}

// handleStatus 处理 GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	if s.status == nil {
		_ = enc.Encode(api.Fail[*api.Status]("unavailable", "status not configured"))
		return
	}
	_ = enc.Encode(api.OK(s.status(r.Context())))
}

// ApiError 表示内部错误类型
type ApiError struct {
	Code string
	Err  error
}

func (e ApiError) withError(err error) ApiError {
	return ApiError{Code: e.Code, Err: err}
}

var (
	// ErrInvalidRequest 无效请求
	ErrInvalidRequest = ApiError{Code: "invalid_request"}
	// ErrMethodNotFound 方法不存在
	ErrMethodNotFound = ApiError{Code: "method_not_found"}
	// ErrInvalidParams 参数错误
	ErrInvalidParams = ApiError{Code: "invalid_params"}
	// ErrInternal 内部错误
	ErrInternal = ApiError{Code: "internal"}
)

// classify 将业务错误映射为响应错误码，带错误码的业务错误原样透出
func classify(err error) ApiError {
	switch {
	case errors.Is(err, protocol.ErrInvalidParams):
		return ErrInvalidParams.withError(err)
	case errx.Is(err, errx.CodeUnknownCommand):
		return ErrMethodNotFound.withError(err)
	}
	if code := errx.CodeOf(err); code != "" {
		return ApiError{Code: string(code), Err: err}
	}
	return ErrInternal.withError(err)
}

// writeResponse 写出统一响应
func writeResponse(w http.ResponseWriter, res *protocol.Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	_ = enc.Encode(res)
}

// writeError 写出错误响应
func writeError(w http.ResponseWriter, id string, apiErr ApiError) {
	writeResponse(w, &protocol.Response{ID: id, Error: toErrorObject(apiErr)})
}

// toErrorObject 转换错误为响应错误对象
func toErrorObject(e ApiError) *protocol.ErrorObject {
	msg := e.Code
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return &protocol.ErrorObject{Code: e.Code, Message: msg}
}
