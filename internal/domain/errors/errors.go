package errors

import (
	"fmt"
)

type ErrWatcherNotFound struct {
	ID string
}

func (e *ErrWatcherNotFound) Error() string {
	return "вотчер не найден: " + e.ID
}

func (e *ErrWatcherNotFound) Is(target error) bool {
	_, ok := target.(*ErrWatcherNotFound)
	return ok
}

type ErrAlertNotFound struct {
	ID string
}

func (e *ErrAlertNotFound) Error() string {
	return "алерт не найден: " + e.ID
}

func (e *ErrAlertNotFound) Is(target error) bool {
	_, ok := target.(*ErrAlertNotFound)
	return ok
}

type ErrHotelNotFound struct {
	ID string
}

func (e *ErrHotelNotFound) Error() string {
	return "отель не найден: " + e.ID
}

func (e *ErrHotelNotFound) Is(target error) bool {
	_, ok := target.(*ErrHotelNotFound)
	return ok
}

// ErrNoContact — у вотчера нет ни одного способа доставки.
type ErrNoContact struct{}

func (e *ErrNoContact) Error() string {
	return "у вотчера должен быть хотя бы один контакт"
}

// ErrNoCriteria — безусловный алерт отклоняется при создании.
type ErrNoCriteria struct{}

func (e *ErrNoCriteria) Error() string {
	return "алерт без единого критерия не допускается"
}

type ErrNoChannel struct{}

func (e *ErrNoChannel) Error() string {
	return "у алерта должен быть включён хотя бы один канал уведомления"
}

type ErrMissingWebhookURL struct {
	WatcherID string
}

func (e *ErrMissingWebhookURL) Error() string {
	return "у вотчера не задан Discord webhook URL: " + e.WatcherID
}

type ErrMissingProviderCredentials struct{}

func (e *ErrMissingProviderCredentials) Error() string {
	return "не заданы учётные данные SMS-провайдера"
}

// ErrPhonePermissionDenied — пользователю не выдано разрешение на телефонный канал.
// Отличается от ошибки доставки: провайдер не вызывался.
type ErrPhonePermissionDenied struct {
	UserID string
}

func (e *ErrPhonePermissionDenied) Error() string {
	return "телефонные уведомления не разрешены для пользователя: " + e.UserID
}

func (e *ErrPhonePermissionDenied) Is(target error) bool {
	_, ok := target.(*ErrPhonePermissionDenied)
	return ok
}

// ErrQuotaExceeded — дневная квота канала исчерпана.
// Отличается от ошибки доставки: провайдер не вызывался.
type ErrQuotaExceeded struct {
	UserID  string
	Channel string
}

func (e *ErrQuotaExceeded) Error() string {
	return fmt.Sprintf("дневная квота канала %s исчерпана для пользователя %s", e.Channel, e.UserID)
}

func (e *ErrQuotaExceeded) Is(target error) bool {
	_, ok := target.(*ErrQuotaExceeded)
	return ok
}

// ErrDeliveryFailed — провайдер или вебхук отклонил доставку.
type ErrDeliveryFailed struct {
	Channel string
	Cause   error
}

func (e *ErrDeliveryFailed) Error() string {
	return fmt.Sprintf("ошибка доставки по каналу %s: %v", e.Channel, e.Cause)
}

func (e *ErrDeliveryFailed) Unwrap() error {
	return e.Cause
}

func (e *ErrDeliveryFailed) Is(target error) bool {
	_, ok := target.(*ErrDeliveryFailed)
	return ok
}

type ErrUnknownDBAccessType struct {
	AccessType string
}

func (e *ErrUnknownDBAccessType) Error() string {
	return fmt.Sprintf("неизвестный тип доступа к базе данных: %s", e.AccessType)
}

type ErrUnknownFeedMode struct {
	Mode string
}

func (e *ErrUnknownFeedMode) Error() string {
	return fmt.Sprintf("неизвестный режим ленты событий: %s", e.Mode)
}

type ErrBuildSQLQuery struct {
	Operation string
	Cause     error
}

func (e *ErrBuildSQLQuery) Error() string {
	return fmt.Sprintf("ошибка при построении SQL запроса (%s): %v", e.Operation, e.Cause)
}

type ErrSQLExecution struct {
	Operation string
	Cause     error
}

func (e *ErrSQLExecution) Error() string {
	return fmt.Sprintf("ошибка при выполнении SQL запроса (%s): %v", e.Operation, e.Cause)
}

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP ошибка: статус %d", e.StatusCode)
}
