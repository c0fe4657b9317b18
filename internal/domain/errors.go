package domain

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfigUnavailable возвращается когда снапшот конфигурации
	// отсутствует или не читается; цикл спит и повторяет попытку
	ErrConfigUnavailable = errors.New("config snapshot unavailable")

	// ErrNotConnected возвращается при потере соединения с площадкой
	ErrNotConnected = errors.New("venue not connected")

	// ErrVenueRejected возвращается когда площадка отклонила запрос
	ErrVenueRejected = errors.New("venue rejected request")

	// ErrStaleBar возвращается когда полученный бар устарел или его
	// метки времени противоречивы
	ErrStaleBar = errors.New("stale or inconsistent bar")

	// ErrBarFetch возвращается после исчерпания попыток получить бар
	ErrBarFetch = errors.New("bar fetch failed")
)
