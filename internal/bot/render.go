package bot

import (
	"fmt"
	"html"
	"strings"

	"coworking/internal/availability"
	"coworking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	seatsPerRow   = 4
	spacesPerPage = 6

	legend = "🟢 свободно · 🟡 забронировано · 🔴 занято · 🛠 неполадки · ⭐ vip"
)

func escape(s string) string {
	return html.EscapeString(s)
}

func statusIcon(status models.SeatStatus) string {
	switch status {
	case models.SeatAvailable:
		return "🟢"
	case models.SeatReserved:
		return "🟡"
	case models.SeatOccupied:
		return "🔴"
	case models.SeatMaintenance:
		return "🛠"
	case models.SeatVIP:
		return "⭐"
	default:
		return "⚪"
	}
}

func countAvailable(seats []availability.SeatView) int {
	n := 0
	for _, s := range seats {
		if s.Available {
			n++
		}
	}
	return n
}

// spaceText describes one space and its seats.
func spaceText(space availability.SpaceView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", escape(space.Title))
	if space.Location != "" && space.Location != space.Title {
		fmt.Fprintf(&sb, "📍 %s\n", escape(space.Location))
	}
	if space.Description != "" {
		fmt.Fprintf(&sb, "%s\n", escape(space.Description))
	}
	for _, note := range space.Notes {
		fmt.Fprintf(&sb, "ℹ️ %s\n", escape(note))
	}
	sb.WriteString("\n")
	if len(space.Seats) == 0 {
		sb.WriteString("Мест пока нет.")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Свободно: %d из %d\n", countAvailable(space.Seats), len(space.Seats))
	sb.WriteString(legend)
	return sb.String()
}

// seatKeyboard lays seats out in rows. Every seat gets a button; clicks on
// unavailable seats are answered with their status.
func seatKeyboard(space availability.SpaceView) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, seat := range space.Seats {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d", statusIcon(seat.Status), seat.Index),
			fmt.Sprintf("seat:%d", seat.ID),
		))
		if len(row) == seatsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", fmt.Sprintf("space:%d", space.ID)),
		tgbotapi.NewInlineKeyboardButtonData("⬅️ К списку", "spaces_page:0"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func mainMenuKeyboard(authenticated bool) tgbotapi.InlineKeyboardMarkup {
	authButton := tgbotapi.NewInlineKeyboardButtonData("🔑 Войти", "login")
	if authenticated {
		authButton = tgbotapi.NewInlineKeyboardButtonData("🚪 Выйти", "logout")
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🪑 Места в коворкинге", "spaces_page:0")),
		tgbotapi.NewInlineKeyboardRow(authButton),
	)
}

func yesNo(v bool) string {
	if v {
		return "да"
	}
	return "нет"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return escape(s)
}

// draftText is the summary shown before submit.
func draftText(d models.BookingDraft) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Бронирование места №%d</b>\n\n", d.SeatIndex)
	fmt.Fprintf(&sb, "Начало: %s\n", orDash(d.Start))
	fmt.Fprintf(&sb, "Окончание: %s\n", orDash(d.End))
	fmt.Fprintf(&sb, "Email: %s\n", orDash(d.Email))
	fmt.Fprintf(&sb, "Согласие с условиями: %s", yesNo(d.AgreementAccepted))
	return sb.String()
}

func draftKeyboard(d models.BookingDraft) tgbotapi.InlineKeyboardMarkup {
	agree := "⬜ Согласен с условиями соглашения"
	if d.AgreementAccepted {
		agree = "☑️ Согласен с условиями соглашения"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(agree, "draft:agree")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Забронировать", "draft:submit"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "draft:cancel"),
		),
	)
}
