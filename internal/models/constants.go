package models

import "time"

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

// Подписи статусов мест, как на сайте
const (
	LabelAvailable   = "Забронировать"
	LabelReserved    = "Забронировано"
	LabelOccupied    = "Занято"
	LabelMaintenance = "Технические неполадки"
	LabelVIP         = "vip"
	LabelUnknown     = "Неизвестно"
)

const (
	NoticeBooked          = "Место успешно забронировано!"
	NoticeBookingFailed   = "Ошибка при бронировании места."
	NoticeConsentRequired = "Вы должны согласиться с условиями соглашения."
)

const (
	// DefaultPollInterval период обновления мест и броней
	DefaultPollInterval = 5 * time.Second

	// DefaultRemoteTimeout таймаут запросов к API коворкинга
	DefaultRemoteTimeout = 10 * time.Second

	// DefaultSessionTTL время жизни сохраненной сессии
	DefaultSessionTTL = 30 * 24 * time.Hour

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах
)
