package upstream

import "asset-booking-backend/internal/inventory"

// ApiResponse models the top-level structure of the inventory feed's response.
type ApiResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int             `json:"page"`
		PageSize int             `json:"pageSize"`
		Total    int             `json:"total"`
		Items    []inventory.Row `json:"items"`
	} `json:"data"`
}
