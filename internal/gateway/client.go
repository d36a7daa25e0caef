// Package gateway предоставляет HTTP-клиент для бэкенда эскроу-сервиса.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/mmeshcher/goldy/internal/model"
	"github.com/mmeshcher/goldy/internal/validation"
)

const (
	opLogin   = "login"
	opSignup  = "signup"
	opList    = "list escrows"
	opCreate  = "create escrow"
	opFund    = "fund escrow"
	opRelease = "release milestone"
	opSearch  = "search users"

	// DefaultTimeout ограничивает время одного запроса.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
	requestIDHeader  = "X-Request-ID"
)

// Client инкапсулирует HTTP-взаимодействие с бэкендом эскроу.
// GET-запросы повторяются при сетевых ошибках и ответах 5xx, POST-запросы не повторяются.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retrying   *retryablehttp.Client
	validate   *validator.Validate
	logger     *zap.Logger
}

// Option настраивает клиент.
type Option func(*Client)

// WithTimeout задаёт таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger задаёт логгер клиента.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetries задаёт число повторов GET-запросов.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retrying.RetryMax = n
		}
	}
}

// NewClient создаёт клиент бэкенда по указанному адресу.
func NewClient(baseURL string, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		validate:   newValidator(),
		logger:     zap.NewNop(),
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.retrying = rc

	for _, opt := range opts {
		opt(c)
	}

	rc.HTTPClient = c.httpClient
	rc.Logger = leveledLogger{c.logger.Sugar()}

	return c
}

// Login выполняет вход по email и паролю.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	req := credentialsRequest{
		Email:    normalizeEmail(email),
		Password: password,
	}
	if err := c.check(opLogin, req); err != nil {
		return nil, err
	}

	var out AuthResult
	if err := c.do(ctx, opLogin, http.MethodPost, "/users/login", "", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup регистрирует нового пользователя.
func (c *Client) Signup(ctx context.Context, email, name, password string) (*AuthResult, error) {
	req := signupRequest{
		Email:    normalizeEmail(email),
		Name:     strings.TrimSpace(name),
		Password: password,
	}
	if err := c.check(opSignup, req); err != nil {
		return nil, err
	}

	var out AuthResult
	if err := c.do(ctx, opSignup, http.MethodPost, "/users/register", "", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEscrows возвращает эскроу текущего пользователя в порядке бэкенда.
func (c *Client) ListEscrows(ctx context.Context, token string) ([]model.Escrow, error) {
	var out []EscrowDTO
	if err := c.do(ctx, opList, http.MethodGet, "/escrows/byUser", token, nil, nil, &out); err != nil {
		return nil, err
	}

	escrows := make([]model.Escrow, 0, len(out))
	for _, dto := range out {
		escrows = append(escrows, dto.ToModel())
	}
	return escrows, nil
}

// CreateEscrow создаёт эскроу и возвращает запись, подтверждённую бэкендом.
func (c *Client) CreateEscrow(ctx context.Context, token string, req model.CreateEscrowRequest) (*model.Escrow, error) {
	if req.Milestones == nil {
		req.Milestones = []model.MilestoneSpec{}
	}
	if err := c.check(opCreate, req); err != nil {
		return nil, err
	}

	var out EscrowDTO
	if err := c.do(ctx, opCreate, http.MethodPost, "/escrow/create", token, nil, req, &out); err != nil {
		return nil, err
	}
	e := out.ToModel()
	return &e, nil
}

// FundEscrow пополняет эскроу платёжным методом, полученным от платёжного провайдера.
// Номер карты вместо ссылки на платёжный метод отклоняется без обращения к сети.
func (c *Client) FundEscrow(ctx context.Context, token string, escrowID int64, paymentMethodID string) (*FundResult, error) {
	req := fundRequest{EscrowID: escrowID, PaymentMethodID: strings.TrimSpace(paymentMethodID)}
	if validation.LooksLikeCardNumber(req.PaymentMethodID) {
		return nil, &Error{
			Kind:          KindValidation,
			Op:            opFund,
			ServerMessage: "Enter a payment method reference, not a card number",
		}
	}
	if err := c.check(opFund, req); err != nil {
		return nil, err
	}

	var out FundResult
	if err := c.do(ctx, opFund, http.MethodPost, "/escrow/fund", token, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReleaseMilestone запрашивает выплату этапа эскроу.
func (c *Client) ReleaseMilestone(ctx context.Context, token string, escrowID, milestoneID int64) (*ReleaseResult, error) {
	req := releaseRequest{EscrowID: escrowID, MilestoneID: milestoneID}
	if err := c.check(opRelease, req); err != nil {
		return nil, err
	}

	var out ReleaseResult
	if err := c.do(ctx, opRelease, http.MethodPost, "/escrow/milestone/release", token, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchUsers ищет пользователей по имени или email.
func (c *Client) SearchUsers(ctx context.Context, token, query string) ([]model.User, error) {
	q := url.Values{}
	q.Set("query", query)

	var out []model.User
	if err := c.do(ctx, opSearch, http.MethodGet, "/users/search", token, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// emailTag проверяет email той же грамматикой, что и поля ввода форм.
const emailTag = "useremail"

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation(emailTag, func(fl validator.FieldLevel) bool {
		return validation.Email(fl.Field().String()).IsValid()
	})
	if err != nil {
		panic(fmt.Sprintf("register %s validation: %v", emailTag, err))
	}
	return v
}

func (c *Client) check(op string, req any) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldError(fe))
		}
		return &Error{Kind: KindValidation, Op: op, ServerMessage: strings.Join(msgs, "; "), Err: err}
	}
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case emailTag:
		return field + " must be a valid email"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func (c *Client) do(ctx context.Context, op, method, path, token string, query url.Values, body, out any) error {
	if c.baseURL == "" {
		return &Error{Kind: KindUnknown, Op: op, Err: errors.New("gateway base URL not configured")}
	}

	authorized := op != opLogin && op != opSignup
	if authorized && token == "" {
		return &Error{Kind: KindUnauthorized, Op: op, Err: ErrNoToken}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("create request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.With(
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
	)

	start := time.Now()
	resp, err := c.send(req)
	if err != nil {
		kind := transportKind(err)
		if kind == KindUnknown {
			kind = KindConnectivity
		}
		if kind != KindCanceled {
			log.Warn("request failed", zap.Error(err), zap.Duration("latency", time.Since(start)))
		}
		return &Error{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: transportKindOr(err, KindConnectivity), Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	log.Debug("request completed", zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		gwErr := &Error{
			Kind:          statusKind(resp.StatusCode),
			Op:            op,
			StatusCode:    resp.StatusCode,
			ServerMessage: serverMessage(data),
		}
		if gwErr.Kind == KindUnknown {
			log.Error("unexpected status", zap.Int("status", resp.StatusCode), zap.ByteString("body", data))
		}
		return gwErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Error("decode response", zap.Error(err), zap.ByteString("body", data))
		return &Error{Kind: KindDecode, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return c.httpClient.Do(req)
	}

	rreq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("wrap request: %w", err)
	}
	return c.retrying.Do(rreq)
}

func transportKindOr(err error, fallback Kind) Kind {
	if k := transportKind(err); k != KindUnknown {
		return k
	}
	return fallback
}

func serverMessage(data []byte) string {
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Message != "" {
		return er.Message
	}

	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "<") {
		return ""
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// leveledLogger адаптирует zap к интерфейсу логгера retryablehttp.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
