package symbols

// aliases maps uppercased raw mentions to canonical symbols. Collisions are
// resolved at authoring time by keeping a single flat map: one raw string,
// one canonical target. Futures notation is listed without the leading
// contract marker; the normalizer strips "/" before retrying.
var aliases = map[string]string{
	// S&P 500
	"ES":      "SPX",
	"MES":     "SPX",
	"ES=F":    "SPX",
	"SPY":     "SPX",
	"SP500":   "SPX",
	"S&P":     "SPX",
	"S&P 500": "SPX",
	"S&P500":  "SPX",

	// Nasdaq 100
	"NQ":     "NDX",
	"MNQ":    "NDX",
	"NQ=F":   "NDX",
	"QQQ":    "NDX",
	"NASDAQ": "NDX",

	// Russell 2000
	"RTY":     "RUT",
	"M2K":     "RUT",
	"RTY=F":   "RUT",
	"IWM":     "RUT",
	"RUSSELL": "RUT",

	// Bitcoin
	"MBT":     "BTC",
	"XBT":     "BTC",
	"BTC-USD": "BTC",
	"BTCUSD":  "BTC",
	"BTCUSDT": "BTC",
	"BTC=F":   "BTC",
	"BITCOIN": "BTC",

	// Semis
	"NVIDIA":                 "NVDA",
	"ADVANCED MICRO DEVICES": "AMD",

	// Mega caps
	"APPLE":     "AAPL",
	"MICROSOFT": "MSFT",
	"AMAZON":    "AMZN",
	"GOOG":      "GOOGL",
	"GOOGLE":    "GOOGL",
	"ALPHABET":  "GOOGL",
	"TESLA":     "TSLA",
}
