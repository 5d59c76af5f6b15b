package tradeapi

// BacktestRequest mirrors the backend's backtest payload. Nil fields are
// omitted so the backend applies its own defaults; a set field is sent even
// when zero. Commission is sent under the backend's "comission" spelling.
type BacktestRequest struct {
	Ticker         string   `json:"ticker"`
	Period         string   `json:"period,omitempty"`
	Interval       string   `json:"interval,omitempty"`
	StrategyType   string   `json:"strategy_type"`
	RSIPeriod      *int     `json:"rsi_period,omitempty"`
	Oversold       *float64 `json:"oversold,omitempty"`
	Overbought     *float64 `json:"overbought,omitempty"`
	InitialCapital *float64 `json:"initial_capital,omitempty"`
	Commission     *float64 `json:"comission,omitempty"`
	PositionSize   *float64 `json:"position_size,omitempty"`
}
