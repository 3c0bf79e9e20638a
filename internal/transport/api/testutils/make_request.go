package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/fsdevblog/escrow-ledger/internal/transport/api/middlewares"
)

type RequestOptions struct {
	headers map[string]string
}

// RequestArgs запрос к API. Payload сериализуется в json, если не nil.
type RequestArgs struct {
	Router  http.Handler
	Method  string
	URL     string
	Payload any
}

// Response ответ API: статус, тело и id запроса, выданный middleware логирования.
type Response struct {
	Status    int
	Body      []byte
	RequestID string
}

// errorBody тело ошибки API. Для ошибок сервиса error - строка, для ошибок валидации - карта поле -> тег.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

func MakeRequest(args RequestArgs, opts ...func(*RequestOptions)) (*Response, error) {
	options := RequestOptions{
		headers: map[string]string{"Content-Type": "application/json"},
	}
	for _, opt := range opts {
		opt(&options)
	}

	var body io.Reader
	if args.Payload != nil {
		raw, err := json.Marshal(args.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling payload: %s", err.Error())
		}
		body = bytes.NewReader(raw)
	}

	request := httptest.NewRequest(args.Method, args.URL, body)
	for k, v := range options.headers {
		request.Header.Set(k, v)
	}

	recorder := httptest.NewRecorder()
	args.Router.ServeHTTP(recorder, request)

	return &Response{
		Status:    recorder.Code,
		Body:      recorder.Body.Bytes(),
		RequestID: recorder.Header().Get(middlewares.RequestIDHeader),
	}, nil
}

// Decode разбирает тело ответа в v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding %q: %s", string(r.Body), err.Error())
	}
	return nil
}

// ErrorText текст ошибки сервиса. Пустая строка, если в теле нет строкового error.
func (r *Response) ErrorText() string {
	var body errorBody
	var text string
	if json.Unmarshal(r.Body, &body) != nil || json.Unmarshal(body.Error, &text) != nil {
		return ""
	}
	return text
}

// FieldErrors ошибки валидации тела запроса: поле -> нарушенное правило.
func (r *Response) FieldErrors() map[string]string {
	var body errorBody
	var fields map[string]string
	if json.Unmarshal(r.Body, &body) != nil || json.Unmarshal(body.Error, &fields) != nil {
		return nil
	}
	return fields
}

func WithHeader(name, value string) func(*RequestOptions) {
	return func(fn *RequestOptions) {
		fn.headers[name] = value
	}
}

// WithBearer авторизация JWT токеном пользователя. Пустой токен ничего не меняет.
func WithBearer(token string) func(*RequestOptions) {
	return func(fn *RequestOptions) {
		if token != "" {
			fn.headers["Authorization"] = "Bearer " + token
		}
	}
}

// WithRequestID передает свой id запроса вместо сгенерированного сервером.
func WithRequestID(id string) func(*RequestOptions) {
	return WithHeader(middlewares.RequestIDHeader, id)
}
