package models

// InstrumentType classifies what was traded.
type InstrumentType string

const (
	InstrumentEquity    InstrumentType = "Equity"
	InstrumentOptions   InstrumentType = "Options"
	InstrumentFutures   InstrumentType = "Futures"
	InstrumentForex     InstrumentType = "Forex"
	InstrumentCrypto    InstrumentType = "Crypto"
	InstrumentETF       InstrumentType = "ETF"
	InstrumentCommodity InstrumentType = "Commodity"
	InstrumentIndex     InstrumentType = "Index"
	InstrumentSpot      InstrumentType = "Spot"
)

// InstrumentTypes lists every instrument type in entry-form order.
var InstrumentTypes = []InstrumentType{
	InstrumentEquity,
	InstrumentOptions,
	InstrumentFutures,
	InstrumentForex,
	InstrumentCrypto,
	InstrumentETF,
	InstrumentCommodity,
	InstrumentIndex,
	InstrumentSpot,
}

var (
	directionalTypes = []string{"Long", "Short"}
	exchangeTypes    = []string{"Buy", "Sell"}
	optionTypes      = []string{"Call Buy", "Call Sell", "Put Buy", "Put Sell"}
)

// AllowedTradeTypes maps each instrument type to the trade types the entry form offers for it.
var AllowedTradeTypes = map[InstrumentType][]string{
	InstrumentEquity:    directionalTypes,
	InstrumentOptions:   optionTypes,
	InstrumentFutures:   directionalTypes,
	InstrumentForex:     exchangeTypes,
	InstrumentCrypto:    exchangeTypes,
	InstrumentETF:       directionalTypes,
	InstrumentCommodity: directionalTypes,
	InstrumentIndex:     append(append([]string{}, directionalTypes...), optionTypes...),
	InstrumentSpot:      exchangeTypes,
}

// Valid reports whether the instrument type is one of the known set.
func (i InstrumentType) Valid() bool {
	_, ok := AllowedTradeTypes[i]
	return ok
}

// Allows reports whether tradeType belongs to the instrument's vocabulary.
func (i InstrumentType) Allows(tradeType string) bool {
	for _, t := range AllowedTradeTypes[i] {
		if t == tradeType {
			return true
		}
	}
	return false
}
