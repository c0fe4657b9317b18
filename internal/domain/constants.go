package domain

// Order sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Submission statuses for the journal
const (
	StatusFilled   = "FILLED"
	StatusPlaced   = "PLACED"
	StatusRejected = "REJECTED"
)

// Retcode площадки для принятого запроса (TRADE_RETCODE_DONE)
const RetcodeDone = 10009

// MagicSeed — стартовое значение счетчика magic, когда у площадки нет ни
// одной позиции и ни одной заявки
const MagicSeed = 100000

// Комментарии к ордерам, видимые в терминале
const (
	CommentPrimary = "Main trade"
	CommentCounter = "Counter trade"
)
