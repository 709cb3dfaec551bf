package request

// IssueTransferRequest is the request body for issuing a transfer token
type IssueTransferRequest struct {
	Identity string `json:"identity"`
}

// RedeemTransferRequest is the request body for redeeming a transfer token
type RedeemTransferRequest struct {
	Token string `json:"token"`
}
