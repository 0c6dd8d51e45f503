package ratelimit

// Settings is the admin API payload for retuning scope budgets. Zero fields
// leave the current value untouched.
type Settings struct {
	GlobalLimit              int `json:"global_limit"`
	GlobalWindowSeconds      int `json:"global_window_seconds"`
	CustomerLimit            int `json:"customer_limit"`
	CustomerWindowSeconds    int `json:"customer_window_seconds"`
	OwnerLimit               int `json:"owner_limit"`
	OwnerWindowSeconds       int `json:"owner_window_seconds"`
	MediaUploadLimit         int `json:"media_upload_limit"`
	MediaUploadWindowSeconds int `json:"media_upload_window_seconds"`
}
