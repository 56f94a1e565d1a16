package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/shoozy-shop/storefront/internal/infrastructure/api"
	sharedConfig "github.com/shoozy-shop/storefront/internal/shared/config"
	appErrors "github.com/shoozy-shop/storefront/internal/shared/errors"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

const (
	MinAmount        = 1_000
	MaxAmount        = 500_000_000
	MaxAddInfoLength = 200

	DefaultAddInfo = "Thanh toan don hang"
	DefaultFormat  = "vietqr_net"

	imageBaseURL = "https://img.vietqr.io/image"
	codeSuccess  = "00"
)

// Params describes one transfer.
type Params struct {
	Amount   int64  `json:"amount" validate:"gte=1000,lte=500000000"`
	AddInfo  string `json:"addInfo" validate:"max=200"`
	BankCode string `json:"bankCode"`
	Format   string `json:"format"`
}

// ValidationResult lists every problem found, in Vietnamese.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

var (
	validate = validator.New()
	vnd      = message.NewPrinter(language.Vietnamese)
)

// Validate checks amount bounds and memo length.
func Validate(p Params) ValidationResult {
	var msgs []string
	if p.Amount <= 0 {
		msgs = append(msgs, "Số tiền phải lớn hơn 0")
	}

	err := validate.Struct(p)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			switch fe.Tag() {
			case "gte":
				msgs = append(msgs, vnd.Sprintf("Số tiền tối thiểu là %d VND", MinAmount))
			case "lte":
				msgs = append(msgs, vnd.Sprintf("Số tiền không được vượt quá %d VND", MaxAmount))
			case "max":
				msgs = append(msgs, fmt.Sprintf("Nội dung chuyển khoản không được vượt quá %d ký tự", MaxAddInfoLength))
			}
		}
	}

	return ValidationResult{Valid: len(msgs) == 0, Errors: msgs}
}

// QRResult is a generated code together with the receiving account.
type QRResult struct {
	QRDataURL string
	QRCode    string
	Bank      Bank
	Account   string
}

type generateRequest struct {
	AccountNo   string `json:"accountNo"`
	AccountName string `json:"accountName"`
	AcqID       string `json:"acqId"`
	AddInfo     string `json:"addInfo"`
	Amount      string `json:"amount"`
	Format      string `json:"format"`
}

type generateResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		QRDataURL string `json:"qrDataURL"`
		QRCode    string `json:"qrCode"`
	} `json:"data"`
}

// Service issues VietQR codes for the shop's receiving account.
type Service struct {
	defaultBank string
	accountNo   string
	accountName string
	client      *api.Client
	breaker     *gobreaker.CircuitBreaker
	logger      logger.Interface
}

func NewService(cfg sharedConfig.PaymentConfig, log logger.Interface) *Service {
	timeout := cfg.VietQR.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := api.NewClient(cfg.VietQR.APIBaseURL,
		api.WithTransport(&apiKeyTransport{key: cfg.VietQR.APIKey, base: http.DefaultTransport}),
		api.WithTimeout(timeout),
		api.WithLogger(log),
	)

	s := &Service{
		defaultBank: cfg.DefaultBank,
		accountNo:   cfg.AccountNo,
		accountName: accountHolder(cfg.AccountName),
		client:      client,
		logger:      log,
	}
	if s.defaultBank == "" {
		s.defaultBank = "mbbank"
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vietqr",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			var rejected *rejectedError
			return err == nil || errors.As(err, &rejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

func (s *Service) prepare(p Params) (Params, Bank, error) {
	if p.BankCode == "" {
		p.BankCode = s.defaultBank
	}
	bank, ok := LookupBank(p.BankCode)
	if !ok {
		return p, Bank{}, appErrors.NewValidationError("Không hỗ trợ ngân hàng: " + p.BankCode)
	}
	if s.accountNo == "" {
		return p, Bank{}, appErrors.NewValidationError("receiving account is not configured")
	}
	if p.AddInfo == "" {
		p.AddInfo = DefaultAddInfo
	}
	if p.Format == "" {
		p.Format = DefaultFormat
	}
	if res := Validate(p); !res.Valid {
		return p, Bank{}, appErrors.NewValidationError(res.Errors[0], res.Errors...)
	}
	p.AddInfo = transferText(p.AddInfo)
	return p, bank, nil
}

// SimpleQRURL returns a VietQR image URL that needs no API key.
func (s *Service) SimpleQRURL(p Params) (string, error) {
	p, bank, err := s.prepare(p)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("accountNo", s.accountNo)
	q.Set("accountName", s.accountName)
	q.Set("acqId", bank.AcqID)
	q.Set("addInfo", p.AddInfo)
	q.Set("amount", strconv.FormatInt(p.Amount, 10))
	q.Set("format", DefaultFormat)

	return fmt.Sprintf("%s/%s-%s-compact.jpg?%s", imageBaseURL, bank.Code, s.accountNo, q.Encode()), nil
}

// Generate asks the VietQR API for a code. Calls are guarded by a circuit
// breaker; a rejected request (code other than "00") does not trip it.
func (s *Service) Generate(ctx context.Context, p Params) (*QRResult, error) {
	p, bank, err := s.prepare(p)
	if err != nil {
		return nil, err
	}

	req := generateRequest{
		AccountNo:   s.accountNo,
		AccountName: s.accountName,
		AcqID:       bank.AcqID,
		AddInfo:     p.AddInfo,
		Amount:      strconv.FormatInt(p.Amount, 10),
		Format:      p.Format,
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		var resp generateResponse
		if err := s.client.DoRaw(ctx, http.MethodPost, "/generate", nil, req, &resp); err != nil {
			var rerr *api.ResponseError
			if errors.As(err, &rerr) && rerr.StatusCode < http.StatusInternalServerError {
				// client-side rejection, not an outage
				return &resp, &rejectedError{rerr}
			}
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		var rejected *rejectedError
		if errors.As(err, &rejected) {
			return nil, appErrors.NewValidationError("VietQR rejected the request", rejected.UserMessage())
		}
		s.logger.Errorw("vietqr generate failed", "error", err)
		return nil, appErrors.NewTransportError("Không thể kết nối đến VietQR API").WithCause(err)
	}

	resp := out.(*generateResponse)
	if resp.Code != codeSuccess {
		desc := resp.Desc
		if desc == "" {
			desc = "Lỗi khi tạo QR code"
		}
		return nil, appErrors.NewValidationError(desc)
	}

	return &QRResult{
		QRDataURL: resp.Data.QRDataURL,
		QRCode:    resp.Data.QRCode,
		Bank:      bank,
		Account:   s.accountNo,
	}, nil
}

// BreakerState exposes the circuit breaker state for diagnostics.
func (s *Service) BreakerState() gobreaker.State {
	return s.breaker.State()
}

type rejectedError struct {
	*api.ResponseError
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if t.key != "" {
		out.Header.Set("x-api-key", t.key)
	}
	return t.base.RoundTrip(out)
}
