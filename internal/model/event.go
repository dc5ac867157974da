package model

import (
	"errors"
	"fmt"
)

// TierName identifies one of the three fixed ticket classes sold for every
// event.  The set is closed: an event always carries exactly these tiers.
type TierName string

const (
	TierGeneral   TierName = "general"
	TierVIP       TierName = "vip"
	TierBackstage TierName = "backstage"
)

// TierNames returns the recognised tiers in display order.
func TierNames() []TierName {
	return []TierName{TierGeneral, TierVIP, TierBackstage}
}

// ParseTierName maps a raw request value onto a TierName.  The comparison is
// exact; "VIP" is not a tier.
func ParseTierName(s string) (TierName, bool) {
	switch TierName(s) {
	case TierGeneral, TierVIP, TierBackstage:
		return TierName(s), true
	}
	return "", false
}

// Tier holds the pricing and capacity of a single ticket class.
//
// Fields:
//
//	Price     – price in major currency units (e.g. STX).
//	Available – total capacity of the tier.
//	Sold      – tickets issued so far; never exceeds Available.
type Tier struct {
	Price     float64 `json:"price"`
	Available int     `json:"available"`
	Sold      int     `json:"sold"`
}

// SoldOut reports whether no further tickets can be sold in the tier.
func (t Tier) SoldOut() bool { return t.Sold >= t.Available }

// Remaining returns how many tickets are still sellable.
func (t Tier) Remaining() int {
	if t.SoldOut() {
		return 0
	}
	return t.Available - t.Sold
}

// Tiers is the fixed general/vip/backstage mapping carried by every event.
type Tiers struct {
	General   Tier `json:"general"`
	VIP       Tier `json:"vip"`
	Backstage Tier `json:"backstage"`
}

// Get returns a pointer to the named tier so callers may read or patch it.
func (ts *Tiers) Get(name TierName) (*Tier, bool) {
	switch name {
	case TierGeneral:
		return &ts.General, true
	case TierVIP:
		return &ts.VIP, true
	case TierBackstage:
		return &ts.Backstage, true
	}
	return nil, false
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventUpcoming EventStatus = "upcoming"
	EventLive     EventStatus = "live"
	EventEnded    EventStatus = "ended"
)

// Valid reports whether s is a known lifecycle state.
func (s EventStatus) Valid() bool {
	switch s {
	case EventUpcoming, EventLive, EventEnded:
		return true
	}
	return false
}

// Event is a sellable occasion created by an organizer.  Timestamps are Unix
// milliseconds to match the JSON representation used by the web client.
type Event struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Location         string      `json:"location"`
	Date             int64       `json:"date"`
	ImageURL         string      `json:"imageUrl"`
	NFTImageURL      string      `json:"nftImageUrl"`
	OrganizerAddress string      `json:"organizerAddress"`
	OrganizerName    string      `json:"organizerName"`
	Tiers            Tiers       `json:"tiers"`
	MetadataURI      string      `json:"metadataUri,omitempty"`
	OnChainID        *uint64     `json:"onChainId,omitempty"`
	CreatedAt        int64       `json:"createdAt"`
	Status           EventStatus `json:"status"`
}

// ErrInvalidTierData is wrapped by ValidateTiers for any tier whose numbers
// break the price/available/sold invariant.
var ErrInvalidTierData = errors.New("invalid tier data")

// ValidateTiers checks price >= 0, available >= 0 and 0 <= sold <= available
// for each of the three tiers.
func (e *Event) ValidateTiers() error {
	for _, name := range TierNames() {
		t, _ := e.Tiers.Get(name)
		if t.Price < 0 || t.Available < 0 || t.Sold < 0 || t.Sold > t.Available {
			return fmt.Errorf("%w: %s", ErrInvalidTierData, name)
		}
	}
	return nil
}

// EventPatch carries a partial update.  Nil fields are left untouched.
// Tier counters are deliberately absent: sold is owned by the capacity ledger.
type EventPatch struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Location    *string      `json:"location,omitempty"`
	Date        *int64       `json:"date,omitempty"`
	ImageURL    *string      `json:"imageUrl,omitempty"`
	NFTImageURL *string      `json:"nftImageUrl,omitempty"`
	MetadataURI *string      `json:"metadataUri,omitempty"`
	Status      *EventStatus `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil && p.Date == nil &&
		p.ImageURL == nil && p.NFTImageURL == nil && p.MetadataURI == nil && p.Status == nil
}

// Apply copies the set fields of p onto e.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.NFTImageURL != nil {
		e.NFTImageURL = *p.NFTImageURL
	}
	if p.MetadataURI != nil {
		e.MetadataURI = *p.MetadataURI
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
}
