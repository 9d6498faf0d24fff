package kalshi

// Market is a market as returned by the Kalshi REST API, reduced to the
// fields the catalog reads.
type Market struct {
	Ticker      string   `json:"ticker"`
	EventTicker string   `json:"event_ticker"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	YesSubTitle string   `json:"yes_sub_title"`
	Status      string   `json:"status"` // "open", "closed", "settled"
	StrikeType  string   `json:"strike_type"`
	FloorStrike *float64 `json:"floor_strike"`
	CapStrike   *float64 `json:"cap_strike"`
	CloseTime   string   `json:"close_time"`
}

// Order is an order to be placed on the Kalshi exchange.
type Order struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	Action        string `json:"action"` // "buy" or "sell"
	Side          string `json:"side"`   // "yes" or "no"
	Type          string `json:"type"`   // "market" or "limit"
	Count         int64  `json:"count"`
	YesPrice      *int64 `json:"yes_price,omitempty"` // cents, 1-99
	NoPrice       *int64 `json:"no_price,omitempty"`  // cents, 1-99
}

// OrderResponse is the API response after placing an order.
type OrderResponse struct {
	Order struct {
		OrderID        string `json:"order_id"`
		ClientOrderID  string `json:"client_order_id"`
		Ticker         string `json:"ticker"`
		Status         string `json:"status"` // "resting", "canceled", "executed", "pending"
		Action         string `json:"action"`
		Side           string `json:"side"`
		Type           string `json:"type"`
		YesPrice       int64  `json:"yes_price"`
		NoPrice        int64  `json:"no_price"`
		RemainingCount int64  `json:"remaining_count"`
		TakerFillCount int64  `json:"taker_fill_count"`
		TakerFillCost  int64  `json:"taker_fill_cost"`
	} `json:"order"`
}

// BalanceResponse is the portfolio balance in cents.
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// ErrorResponse is a Kalshi API error body.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
