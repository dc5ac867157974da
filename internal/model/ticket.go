package model

// Ticket is the durable record of a settled purchase.  It is created once per
// accepted payment proof and later mutated only by check-in and reward
// recording.
//
// Fields:
//
//	ID             – globally unique ticket identifier.
//	EventID        – event the ticket admits to.
//	OwnerAddress   – wallet address of the buyer.
//	Tier           – ticket class.
//	PurchaseTxHash – chain transaction that paid for the ticket.
//	QRCodeData     – base64 encoded, signed QRPayload.
//	CheckedIn      – set once by the check-in workflow.
//	CheckinTime    – Unix ms of check-in (nil until checked in).
//	RewardMinted   – whether an attendance reward has been minted.
//	RewardTokenID  – external reference of the minted reward.
//	CreatedAt      – Unix ms of issuance.
type Ticket struct {
	ID             string   `json:"id"`
	EventID        string   `json:"eventId"`
	OwnerAddress   string   `json:"ownerAddress"`
	Tier           TierName `json:"tier"`
	PurchaseTxHash string   `json:"purchaseTxHash"`
	QRCodeData     string   `json:"qrCodeData"`
	CheckedIn      bool     `json:"checkedIn"`
	CheckinTime    *int64   `json:"checkinTime,omitempty"`
	RewardMinted   bool     `json:"rewardMinted"`
	RewardTokenID  string   `json:"rewardTokenId,omitempty"`
	CreatedAt      int64    `json:"createdAt"`
}

// QRPayload is the signed content embedded in a ticket's QR code.  The
// signature is a SHA-256 digest over the other fields concatenated in
// declaration order followed by the shared secret.
type QRPayload struct {
	TicketID     string   `json:"ticketId"`
	EventID      string   `json:"eventId"`
	OwnerAddress string   `json:"ownerAddress"`
	Tier         TierName `json:"tier"`
	Timestamp    int64    `json:"timestamp"`
	Signature    string   `json:"signature"`
}

// TierBreakdown counts tickets per tier.
type TierBreakdown struct {
	General   int `json:"general"`
	VIP       int `json:"vip"`
	Backstage int `json:"backstage"`
}

// EventAnalytics summarises sales and attendance for an event.
type EventAnalytics struct {
	EventID          string        `json:"eventId"`
	TotalTicketsSold int           `json:"totalTicketsSold"`
	TotalRevenue     float64       `json:"totalRevenue"`
	TierBreakdown    TierBreakdown `json:"tierBreakdown"`
	CheckedInCount   int           `json:"checkedInCount"`
	RewardsMinted    int           `json:"rewardsMinted"`
}
