package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/central-university-dev/go-RoomWatcher/internal/common/httputil"
	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

// PhoneClient — Twilio-совместимый клиент SMS и голосовых звонков.
type PhoneClient struct {
	client     *resty.Client
	baseURL    string
	accountID  string
	fromNumber string
	logger     *slog.Logger
}

type PhoneSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
	StartCall(ctx context.Context, to, script string) (string, error)
}

func NewPhoneClient(cfg *config.Config, logger *slog.Logger) (PhoneSender, error) {
	if cfg.SMSProviderAccountID == "" || cfg.SMSProviderToken == "" {
		return nil, &customerrors.ErrMissingProviderCredentials{}
	}

	client := httputil.CreateResilientHTTPClient(cfg, logger, "phone_provider")
	client.SetBasicAuth(cfg.SMSProviderAccountID, cfg.SMSProviderToken)

	return &PhoneClient{
		client:     client,
		baseURL:    cfg.SMSProviderBaseURL,
		accountID:  cfg.SMSProviderAccountID,
		fromNumber: cfg.SMSFromNumber,
		logger:     logger,
	}, nil
}

// NoopPhoneClient подменяет провайдера, когда учётные данные не заданы:
// любая попытка отправки возвращает типизированную ошибку доставки.
type NoopPhoneClient struct {
	logger *slog.Logger
}

func NewNoopPhoneClient(logger *slog.Logger) PhoneSender {
	return &NoopPhoneClient{logger: logger}
}

func (c *NoopPhoneClient) SendSMS(_ context.Context, to, _ string) (string, error) {
	c.logger.Warn("SMS не отправлено: провайдер не настроен",
		"to", to,
	)

	return "", &customerrors.ErrDeliveryFailed{
		Channel: string(models.ChannelSMS),
		Cause:   &customerrors.ErrMissingProviderCredentials{},
	}
}

func (c *NoopPhoneClient) StartCall(_ context.Context, to, _ string) (string, error) {
	c.logger.Warn("Звонок не выполнен: провайдер не настроен",
		"to", to,
	)

	return "", &customerrors.ErrDeliveryFailed{
		Channel: string(models.ChannelCall),
		Cause:   &customerrors.ErrMissingProviderCredentials{},
	}
}

type providerResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// SendSMS возвращает идентификатор сообщения у провайдера.
func (c *PhoneClient) SendSMS(ctx context.Context, to, body string) (string, error) {
	url := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountID)

	var result providerResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": c.fromNumber,
			"Body": body,
		}).
		SetResult(&result).
		Post(url)
	if err != nil {
		return "", &customerrors.ErrDeliveryFailed{Channel: string(models.ChannelSMS), Cause: err}
	}

	if !resp.IsSuccess() {
		return "", &customerrors.ErrDeliveryFailed{
			Channel: string(models.ChannelSMS),
			Cause:   fmt.Errorf("провайдер вернул статус: %d", resp.StatusCode()),
		}
	}

	return result.SID, nil
}

// StartCall инициирует звонок с зачитыванием текста. Успешный ответ означает
// только принятие звонка провайдером, а не дозвон, поэтому вызывающая сторона
// пишет в журнал статус initiated.
func (c *PhoneClient) StartCall(ctx context.Context, to, script string) (string, error) {
	url := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountID)

	twiml := fmt.Sprintf("<Response><Say>%s</Say></Response>", script)

	var result providerResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":    to,
			"From":  c.fromNumber,
			"Twiml": twiml,
		}).
		SetResult(&result).
		Post(url)
	if err != nil {
		return "", &customerrors.ErrDeliveryFailed{Channel: string(models.ChannelCall), Cause: err}
	}

	if !resp.IsSuccess() {
		return "", &customerrors.ErrDeliveryFailed{
			Channel: string(models.ChannelCall),
			Cause:   fmt.Errorf("провайдер вернул статус: %d", resp.StatusCode()),
		}
	}

	return result.SID, nil
}
