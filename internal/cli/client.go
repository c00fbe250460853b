package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// StepRef — позиция в workflow.
type StepRef struct {
	Phase int `json:"phase"`
	Step  int `json:"step"`
}

// String возвращает позицию в виде "phase.step".
func (r StepRef) String() string {
	return fmt.Sprintf("%d.%d", r.Phase, r.Step)
}

// TenderResponse — тендер из API.
type TenderResponse struct {
	ID             string         `json:"id"`
	Reference      string         `json:"reference"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Amount         float64        `json:"amount"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Phase          int            `json:"phase"`
	Step           int            `json:"step"`
	StepTitle      string         `json:"step_title,omitempty"`
	Role           string         `json:"role,omitempty"`
	CurrentActorID *string        `json:"current_actor_id"`
	Status         string         `json:"status"`
	Deadline       *time.Time     `json:"deadline,omitempty"`
	CreatedBy      string         `json:"created_by"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// StepResponse — определение шага из каталога.
type StepResponse struct {
	Phase           int      `json:"phase"`
	StepNumber      int      `json:"step_number"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	ResponsibleRole string   `json:"responsible_role"`
	EstimatedDays   int      `json:"estimated_days"`
	MaxDays         int      `json:"max_days"`
	OnRejectTarget  *StepRef `json:"on_reject_target,omitempty"`
}

// HistoryEntryResponse — запись журнала шагов.
type HistoryEntryResponse struct {
	ID          int64      `json:"id"`
	TenderID    string     `json:"tender_id"`
	Step        StepRef    `json:"step"`
	ActorID     *string    `json:"actor_id,omitempty"`
	Action      string     `json:"action"`
	Comments    string     `json:"comments,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TimelineEntryResponse — запись журнала с описанием шага.
type TimelineEntryResponse struct {
	Entry HistoryEntryResponse `json:"entry"`
	Step  *StepResponse        `json:"step,omitempty"`
}

// TaskResponse — задача в очереди исполнителя.
type TaskResponse struct {
	TenderID  string     `json:"tender_id"`
	Reference string     `json:"reference"`
	Title     string     `json:"title"`
	Amount    float64    `json:"amount"`
	Position  StepRef    `json:"position"`
	StepTitle string     `json:"step_title,omitempty"`
	Role      string     `json:"role,omitempty"`
	ActorID   *string    `json:"actor_id,omitempty"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Overdue   bool       `json:"overdue"`
}

// UserResponse — пользователь справочника.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PhaseResponse — шаги одной фазы.
type PhaseResponse struct {
	Phase int            `json:"phase"`
	Steps []StepResponse `json:"steps"`
}

// CatalogResponse — каталог шагов.
type CatalogResponse struct {
	TotalSteps int             `json:"total_steps"`
	Phases     []PhaseResponse `json:"phases"`
}

// --- Request types ---

// CreateTenderRequest — создание тендера.
type CreateTenderRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Amount      float64        `json:"amount"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Deadline    *time.Time     `json:"deadline,omitempty"`
}

// TransitionRequest — approve/reject/cancel.
type TransitionRequest struct {
	Comments string     `json:"comments,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// CreateUserRequest — добавление пользователя.
type CreateUserRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}

// ListTendersOpts — параметры фильтрации тендеров.
type ListTendersOpts struct {
	Status string
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ответ API с кодом ошибки.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для Tenderflow API.
type Client struct {
	baseURL    string
	actorID    string
	idemKey    string
	httpClient *http.Client
}

// ClientConfig — параметры клиента.
type ClientConfig struct {
	BaseURL string

	// ActorID — значение X-Actor-ID для всех запросов.
	ActorID string

	// IdempotencyKey — значение Idempotency-Key для изменяющих запросов.
	IdempotencyKey string

	Timeout time.Duration
}

// NewClient создаёт клиент для API.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		actorID: cfg.ActorID,
		idemKey: cfg.IdempotencyKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Tenders ---

// ListTenders возвращает тендеры с фильтрацией.
func (c *Client) ListTenders(opts ListTendersOpts) ([]TenderResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var tenders []TenderResponse
	err := c.list("/api/v1/tenders", params, &tenders)
	return tenders, err
}

// CreateTender создаёт тендер от имени текущего актора.
func (c *Client) CreateTender(req CreateTenderRequest) (*TenderResponse, error) {
	var tender TenderResponse
	err := c.post("/api/v1/tenders", req, &tender)
	return &tender, err
}

// GetTender возвращает тендер по ID.
func (c *Client) GetTender(id string) (*TenderResponse, error) {
	var tender TenderResponse
	err := c.get("/api/v1/tenders/"+url.PathEscape(id), &tender)
	return &tender, err
}

// Approve одобряет текущий шаг тендера.
func (c *Client) Approve(id string, req TransitionRequest) (*TenderResponse, error) {
	return c.transition(id, "approve", req)
}

// Reject отклоняет текущий шаг тендера.
func (c *Client) Reject(id string, req TransitionRequest) (*TenderResponse, error) {
	return c.transition(id, "reject", req)
}

// Cancel отменяет тендер.
func (c *Client) Cancel(id string, req TransitionRequest) (*TenderResponse, error) {
	return c.transition(id, "cancel", req)
}

func (c *Client) transition(id, action string, req TransitionRequest) (*TenderResponse, error) {
	var tender TenderResponse
	err := c.post("/api/v1/tenders/"+url.PathEscape(id)+"/"+action, req, &tender)
	return &tender, err
}

// Timeline возвращает журнал шагов тендера.
func (c *Client) Timeline(id string) ([]TimelineEntryResponse, error) {
	var entries []TimelineEntryResponse
	err := c.list("/api/v1/tenders/"+url.PathEscape(id)+"/timeline", nil, &entries)
	return entries, err
}

// --- Tasks ---

// MyTasks возвращает очередь текущего актора (X-Actor-ID).
func (c *Client) MyTasks() ([]TaskResponse, error) {
	var tasks []TaskResponse
	err := c.list("/api/v1/tasks", nil, &tasks)
	return tasks, err
}

// Tasks возвращает очередь исполнителя или роли.
func (c *Client) Tasks(assignee string) ([]TaskResponse, error) {
	var tasks []TaskResponse
	err := c.list("/api/v1/tasks/"+url.PathEscape(assignee), nil, &tasks)
	return tasks, err
}

// --- Catalog ---

// Catalog возвращает каталог шагов.
func (c *Client) Catalog() (*CatalogResponse, error) {
	var cat CatalogResponse
	err := c.get("/api/v1/catalog", &cat)
	return &cat, err
}

// Phase возвращает шаги одной фазы.
func (c *Client) Phase(phase int) (*PhaseResponse, error) {
	var p PhaseResponse
	err := c.get("/api/v1/catalog/phases/"+strconv.Itoa(phase), &p)
	return &p, err
}

// --- Users ---

// ListUsers возвращает пользователей. Пустая роль — все.
func (c *Client) ListUsers(role string) ([]UserResponse, error) {
	params := url.Values{}
	if role != "" {
		params.Set("role", role)
	}

	var users []UserResponse
	err := c.list("/api/v1/users", params, &users)
	return users, err
}

// CreateUser добавляет пользователя.
func (c *Client) CreateUser(req CreateUserRequest) (*UserResponse, error) {
	var user UserResponse
	err := c.post("/api/v1/users", req, &user)
	return &user, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.actorID != "" {
		req.Header.Set("X-Actor-ID", c.actorID)
	}
	if c.idemKey != "" && method != http.MethodGet {
		req.Header.Set("Idempotency-Key", c.idemKey)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	return apiErr
}
