package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/iudanet/gophnotes/pkg/api"
)

// DefaultTimeout таймаут одного запроса к серверу
const DefaultTimeout = 30 * time.Second

// Client представляет HTTP клиент для обмена с сервером синхронизации
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option настраивает Client
type Option func(*Client)

// WithToken задаёт bearer токен для всех запросов
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout задаёт таймаут запроса
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger включает логирование каждого запроса
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.httpClient.Transport = NewLoggingTransport(c.httpClient.Transport, logger)
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Push отправляет локальные изменения на сервер
func (c *Client) Push(ctx context.Context, req api.PushRequest) (*api.PushResponse, error) {
	var resp api.PushResponse
	if err := c.doRequest(ctx, http.MethodPost, "/sync/push", req, &resp); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return &resp, nil
}

// Pull запрашивает изменения, которых нет у клиента
func (c *Client) Pull(ctx context.Context, req api.PullRequest) (*api.PullResponse, error) {
	var resp api.PullResponse
	if err := c.doRequest(ctx, http.MethodPost, "/sync/pull", req, &resp); err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	return &resp, nil
}

// CreateNote публикует новую заметку на сервере
func (c *Client) CreateNote(ctx context.Context, req api.CreateNoteRequest) (*api.CreateNoteResponse, error) {
	var resp api.CreateNoteResponse
	if err := c.doRequest(ctx, http.MethodPost, "/notes", req, &resp); err != nil {
		return nil, fmt.Errorf("create note request failed: %w", err)
	}
	return &resp, nil
}

// DeleteNote удаляет заметку на сервере
func (c *Client) DeleteNote(ctx context.Context, noteID string) (*api.DeleteNoteResponse, error) {
	var resp api.DeleteNoteResponse
	path := "/notes/" + url.PathEscape(noteID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("delete note request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос.
// Все ошибки обмена оборачиваются в ErrTransport.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}

		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && (errResp.Error != "" || errResp.Message != "") {
			msg := errResp.Error
			if errResp.Message != "" {
				msg = errResp.Message
			}
			statusErr.Message = fmt.Sprintf("server error (%d): %s", resp.StatusCode, msg)
		} else {
			statusErr.Message = fmt.Sprintf("request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%w: %w", ErrTransport, statusErr)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", ErrTransport, err)
		}
	}

	return nil
}
