package order

type UpdateStatusRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
	Status  string `json:"status" validate:"required,order_status"`
}

// OrderEvent is the payload published on the event stream for order.created
// and order.updated.
type OrderEvent struct {
	OrderID    string `json:"order_id"`
	ListingID  string `json:"listing_id"`
	BuyerID    string `json:"buyer_id"`
	SellerID   string `json:"seller_id"`
	Amount     string `json:"amount"`
	TotalPrice string `json:"total_price"`
	Status     string `json:"status"`
}
