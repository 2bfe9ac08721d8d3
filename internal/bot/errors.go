package bot

import (
	"errors"

	"coworking/internal/auth"
	"coworking/internal/booking"
	"coworking/internal/models"
)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, auth.ErrInvalidCredentials) {
		return "⚠️ Неверный email или пароль. Попробуйте еще раз: /login"
	}

	if errors.Is(err, booking.ErrConsentRequired) {
		return "⚠️ " + models.NoticeConsentRequired
	}

	if errors.Is(err, booking.ErrNoDraft) {
		return "⚠️ Форма бронирования уже закрыта. Выберите место заново."
	}

	if errors.Is(err, booking.ErrSubmitInFlight) {
		return "⏳ Бронирование уже отправлено, подождите ответа."
	}

	var submitErr *booking.SubmitError
	if errors.As(err, &submitErr) {
		return "❌ " + models.NoticeBookingFailed + " Проверьте данные и попробуйте еще раз."
	}

	// Default error message
	return "❌ Произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте позже."
}
