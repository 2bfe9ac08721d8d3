package bot

import (
	"fmt"
	"strings"

	"coworking/internal/availability"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type PaginationParams struct {
	ChatID       int64
	MessageID    int // 0 if new message
	Page         int
	Title        string
	ItemPrefix   string
	PagePrefix   string
	BackCallback string
}

// renderPaginatedList - универсальная функция для отрисовки пагинированного списка
func (b *Bot) renderPaginatedList(params PaginationParams, totalCount int, itemsPerPage int, renderer func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton)) {
	if itemsPerPage <= 0 {
		itemsPerPage = spacesPerPage
	}
	if params.Page < 0 {
		params.Page = 0
	}

	startIdx := params.Page * itemsPerPage
	endIdx := startIdx + itemsPerPage
	if endIdx > totalCount {
		endIdx = totalCount
	}

	totalPages := (totalCount + itemsPerPage - 1) / itemsPerPage
	if params.Page >= totalPages && totalPages > 0 {
		params.Page = totalPages - 1
		startIdx = params.Page * itemsPerPage
		endIdx = totalCount
	}

	content, keyboard := renderer(startIdx, endIdx)

	var message strings.Builder
	message.WriteString(fmt.Sprintf("%s\n\n", params.Title))
	if totalPages > 1 {
		message.WriteString(fmt.Sprintf("Страница %d из %d\n\n", params.Page+1, totalPages))
	}
	message.WriteString(content)

	var navButtons []tgbotapi.InlineKeyboardButton
	if params.Page > 0 {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("%s%d", params.PagePrefix, params.Page-1)))
	}
	if endIdx < totalCount {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("Вперед ➡️", fmt.Sprintf("%s%d", params.PagePrefix, params.Page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}

	if params.BackCallback != "" {
		keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад в меню", params.BackCallback),
		})
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)

	if params.MessageID != 0 {
		if _, err := b.tgService.ReplaceCard(params.ChatID, params.MessageID, message.String(), markup); err != nil {
			b.logger.Warn().Err(err).Int64("chat_id", params.ChatID).Msg("failed to edit list message")
		}
		return
	}
	if _, err := b.tgService.SendCard(params.ChatID, message.String(), markup); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", params.ChatID).Msg("failed to send list message")
	}
}

// renderPaginatedSpaces - список коворкингов с количеством свободных мест
func (b *Bot) renderPaginatedSpaces(params PaginationParams) {
	spaces := b.seats.View().Spaces
	if len(spaces) == 0 {
		b.sendMessage(params.ChatID, "Не удалось загрузить список мест. Попробуйте чуть позже.")
		return
	}

	b.renderPaginatedList(params, len(spaces), spacesPerPage, func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for i, space := range spaces[startIdx:endIdx] {
			free := countAvailable(space.Seats)
			content.WriteString(fmt.Sprintf("%d. <b>%s</b>: свободно %d из %d\n", startIdx+i+1, escape(space.Title), free, len(space.Seats)))

			btn := tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d. %s", startIdx+i+1, space.Title),
				fmt.Sprintf("%s%d", params.ItemPrefix, space.ID),
			)
			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{btn})
		}

		return content.String(), keyboard
	})
}

func findSpace(view availability.View, spaceID int64) (availability.SpaceView, bool) {
	for _, s := range view.Spaces {
		if s.ID == spaceID {
			return s, true
		}
	}
	return availability.SpaceView{}, false
}
