package query

import (
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// resolveWindow подставляет текущую неделю вместо пустого окна.
// Окно с концом раньше начала - ошибка аргумента.
func resolveWindow(cal *calendar.Calendar, w calendar.Range) (calendar.Range, error) {
	switch {
	case w.Start.IsZero() && w.End.IsZero():
		return cal.CurrentWeek(), nil
	case w.Start.IsZero():
		return calendar.WeekOf(w.End), nil
	case w.End.IsZero():
		return calendar.WeekOf(w.Start), nil
	case w.End.Before(w.Start):
		return calendar.Range{}, shared.ErrInvalidRange
	}
	return w, nil
}
